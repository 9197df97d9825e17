// Package preferences 持久化单个用户的主题、语言与本地模式开关。
package preferences

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/storage"
	"Koro/backend/go/pkg/logger"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrUnsupportedTheme    = errors.New("unsupported theme")
)

type stored struct {
	Theme    models.Theme    `json:"theme"`
	Language models.Language `json:"language"`
}

// Repository 读写偏好。主题与语言保存在一个键下，本地模式开关单独保存。
type Repository struct {
	mu     sync.Mutex
	kv     storage.Store
	logger *logger.Logger
}

// NewRepository 创建偏好仓库。
func NewRepository(kv storage.Store, logger *logger.Logger) *Repository {
	return &Repository{kv: kv, logger: logger}
}

// Load 返回当前偏好，缺失或损坏的字段使用默认值。
func (r *Repository) Load(ctx context.Context) models.Preferences {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *Repository) load(ctx context.Context) models.Preferences {
	prefs := models.DefaultPreferences()

	var s stored
	if _, err := storage.LoadJSON(ctx, r.kv, storage.KeyPreferences, &s); err != nil {
		r.logger.WithError(models.NewErrorInfo(err, "storage_error")).Warn("discarding unreadable preferences")
	}
	if s.Theme == models.ThemeLight || s.Theme == models.ThemeDark {
		prefs.Theme = s.Theme
	}
	if s.Language.Valid() {
		prefs.Language = s.Language
	}

	var force bool
	if _, err := storage.LoadJSON(ctx, r.kv, storage.KeyForceLocal, &force); err == nil {
		prefs.ForceLocal = force
	}
	return prefs
}

// Save 校验并保存完整的偏好。
func (r *Repository) Save(ctx context.Context, prefs models.Preferences) error {
	if prefs.Theme != models.ThemeLight && prefs.Theme != models.ThemeDark {
		return fmt.Errorf("%w: %s", ErrUnsupportedTheme, prefs.Theme)
	}
	if !prefs.Language.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, prefs.Language)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, prefs)
}

func (r *Repository) save(ctx context.Context, prefs models.Preferences) error {
	if err := storage.SaveJSON(ctx, r.kv, storage.KeyPreferences, stored{Theme: prefs.Theme, Language: prefs.Language}); err != nil {
		return err
	}
	return storage.SaveJSON(ctx, r.kv, storage.KeyForceLocal, prefs.ForceLocal)
}

func (r *Repository) update(ctx context.Context, fn func(*models.Preferences)) (models.Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefs := r.load(ctx)
	fn(&prefs)
	return prefs, r.save(ctx, prefs)
}

// SetTheme 设置主题。
func (r *Repository) SetTheme(ctx context.Context, theme models.Theme) (models.Preferences, error) {
	if theme != models.ThemeLight && theme != models.ThemeDark {
		return r.Load(ctx), fmt.Errorf("%w: %s", ErrUnsupportedTheme, theme)
	}
	return r.update(ctx, func(p *models.Preferences) { p.Theme = theme })
}

// ToggleTheme 在明暗主题之间切换。
func (r *Repository) ToggleTheme(ctx context.Context) (models.Preferences, error) {
	return r.update(ctx, func(p *models.Preferences) {
		if p.Theme == models.ThemeDark {
			p.Theme = models.ThemeLight
		} else {
			p.Theme = models.ThemeDark
		}
	})
}

// SetLanguage 设置对话语言，拒绝不支持的语言。
func (r *Repository) SetLanguage(ctx context.Context, lang models.Language) (models.Preferences, error) {
	if !lang.Valid() {
		return r.Load(ctx), fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return r.update(ctx, func(p *models.Preferences) { p.Language = lang })
}

// SetForceLocal 打开或关闭强制本地模式。
func (r *Repository) SetForceLocal(ctx context.Context, on bool) (models.Preferences, error) {
	return r.update(ctx, func(p *models.Preferences) { p.ForceLocal = on })
}
