package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/voicept/internal/config"
	"github.com/briangreenhill/voicept/internal/db"
)

// exerciseKV runs the same contract against every backend.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "a:key", []byte(`{"v":1}`)))
	got, err := kv.Get(ctx, "a:key")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got))

	require.NoError(t, kv.Set(ctx, "a:key", []byte(`{"v":2}`)))
	got, err = kv.Get(ctx, "a:key")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))

	require.NoError(t, kv.Remove(ctx, "a:key"))
	_, err = kv.Get(ctx, "a:key")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, kv.Remove(ctx, "a:key"), "removing twice is fine")
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestFileKV(t *testing.T) {
	kv, err := NewFileKV(filepath.Join(t.TempDir(), "nested", "dir"))
	require.NoError(t, err)
	exerciseKV(t, kv)
}

func TestFileKVNoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), "k", []byte("v")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.json", entries[0].Name())
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"plain", "voicePtHealthInfo", "voicePtHealthInfo"},
		{"namespaced", "abc:voicePtHealthInfo", "abc_voicePtHealthInfo"},
		{"path traversal", "../etc/passwd", "__etc_passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeKey(tt.key))
		})
	}

	long := sanitizeKey(strings.Repeat("x", 300))
	assert.True(t, strings.HasPrefix(long, "hash_"))
	assert.Len(t, long, len("hash_")+32)
}

func TestSQLiteKV(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	exerciseKV(t, kv)
}

func TestSQLiteKVPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	require.NoError(t, kv.Close())

	kv, err = NewSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestOpenSQLiteCreatesStoreDir(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.StoreSQLite
	cfg.Store.Dir = filepath.Join(t.TempDir(), "nested", "voicept")

	kv, err := Open(context.Background(), &cfg)
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Set(context.Background(), "k", []byte("v")))
	assert.FileExists(t, filepath.Join(cfg.Store.Dir, "voicept.db"))
	assert.NoDirExists(t, filepath.Join(cfg.Store.Dir, "profiles"))
}

func TestValkeyKV(t *testing.T) {
	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		t.Skip("VALKEY_ADDR not set")
	}
	client, err := DialValkey(context.Background(), addr)
	require.NoError(t, err)
	kv := NewValkeyKV(client, "voicept-test")
	t.Cleanup(func() { _ = kv.Close() })
	exerciseKV(t, kv)
}

func TestPostgresKV(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	require.NoError(t, db.Migrate(dsn))
	pool, err := db.Connect(context.Background(), dsn)
	require.NoError(t, err)
	kv := NewPostgresKV(pool)
	t.Cleanup(func() { _ = kv.Close() })
	exerciseKV(t, kv)
}
