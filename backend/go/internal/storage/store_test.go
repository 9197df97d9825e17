package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte(`{"a":1}`)))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(v))

	require.NoError(t, s.Set(ctx, "k", []byte(`{"a":2}`)))
	v, _, _ = s.Get(ctx, "k")
	assert.JSONEq(t, `{"a":2}`, string(v))

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// 删除不存在的键不是错误
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreKeyWithSeparators(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "user:../../etc/passwd", []byte("x")))
	v, ok, err := s.Get(ctx, "user:../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", string(v))
}

func TestNamespacedIsolation(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	a := Namespaced(base, "user:a:")
	b := Namespaced(base, "user:b:")

	require.NoError(t, a.Set(ctx, KeySessions, []byte("A")))
	_, ok, err := b.Get(ctx, KeySessions)
	require.NoError(t, err)
	assert.False(t, ok)

	raw, ok, _ := base.Get(ctx, "user:a:"+KeySessions)
	assert.True(t, ok)
	assert.Equal(t, "A", string(raw))
}

func TestLoadJSONMalformed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "bad", []byte("{not json")))

	var out []string
	found, err := LoadJSON(ctx, s, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)

	require.NoError(t, SaveJSON(ctx, s, "good", []string{"x"}))
	found, err = LoadJSON(ctx, s, "good", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"x"}, out)
}
