package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon-dashboard/pkg/db"
)

func newSQLite(t *testing.T) *SQLiteKV {
	t.Helper()
	conn, err := db.NewSQLiteConnection(filepath.Join(t.TempDir(), "state", "netmon.db"))
	require.NoError(t, err)
	kv, err := NewSQLiteKV(context.Background(), conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func testKV(t *testing.T, kv KV) {
	ctx := context.Background()

	_, err := kv.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, KeyAccessToken, "a"))
	require.NoError(t, kv.Set(ctx, KeyAccessToken, "b"))
	require.NoError(t, kv.Set(ctx, KeyRefreshToken, "r"))

	v, err := kv.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	require.NoError(t, kv.Delete(ctx, KeyAccessToken, KeyRefreshToken))
	_, err = kv.Get(ctx, KeyRefreshToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteKV(t *testing.T) {
	testKV(t, newSQLite(t))
}

func TestMemoryKV(t *testing.T) {
	testKV(t, NewMemoryKV())
}

func TestSQLiteKVSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "netmon.db")

	conn, err := db.NewSQLiteConnection(path)
	require.NoError(t, err)
	kv, err := NewSQLiteKV(ctx, conn)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, KeyTheme, ThemeDark))
	require.NoError(t, kv.Close())

	conn, err = db.NewSQLiteConnection(path)
	require.NoError(t, err)
	kv, err = NewSQLiteKV(ctx, conn)
	require.NoError(t, err)
	defer kv.Close()

	v, err := kv.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, v)
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	p, err := LoadPreferences(ctx, kv)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences, p)

	p, err = SavePreferences(ctx, kv, Preferences{Language: LanguageArabic})
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, p.Theme)
	assert.Equal(t, LanguageArabic, p.Language)
	assert.True(t, p.RTL())

	_, err = SavePreferences(ctx, kv, Preferences{Theme: "neon"})
	assert.Error(t, err)
	_, err = SavePreferences(ctx, kv, Preferences{Language: "fr"})
	assert.Error(t, err)
}
