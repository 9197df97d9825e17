package preferences

import (
	"context"
	"testing"

	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/storage"
	"Koro/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	repo := NewRepository(storage.NewMemoryStore(), logger.Discard())
	assert.Equal(t, models.DefaultPreferences(), repo.Load(context.Background()))
}

func TestMalformedPreferencesFallBackToDefaults(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, storage.KeyPreferences, []byte("{not json")))
	require.NoError(t, kv.Set(ctx, storage.KeyForceLocal, []byte("maybe")))

	prefs := NewRepository(kv, logger.Discard()).Load(ctx)
	assert.Equal(t, models.DefaultPreferences(), prefs)
}

func TestSettersPersist(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	repo := NewRepository(kv, logger.Discard())

	_, err := repo.SetLanguage(ctx, models.LangUrdu)
	require.NoError(t, err)
	_, err = repo.ToggleTheme(ctx)
	require.NoError(t, err)
	_, err = repo.SetForceLocal(ctx, true)
	require.NoError(t, err)

	// 新仓库从同一个存储读到相同的值
	prefs := NewRepository(kv, logger.Discard()).Load(ctx)
	assert.Equal(t, models.LangUrdu, prefs.Language)
	assert.Equal(t, models.ThemeLight, prefs.Theme)
	assert.True(t, prefs.ForceLocal)
}

func TestRejectsUnknownValues(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(storage.NewMemoryStore(), logger.Discard())

	prefs, err := repo.SetLanguage(ctx, models.Language("de"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Equal(t, models.LangEnglish, prefs.Language)

	_, err = repo.SetTheme(ctx, models.Theme("neon"))
	assert.ErrorIs(t, err, ErrUnsupportedTheme)

	err = repo.Save(ctx, models.Preferences{Theme: models.ThemeDark, Language: "xx"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}
