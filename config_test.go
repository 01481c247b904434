package symindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigAppliesDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, ".cache/index", c.CacheRoot)
	assert.Equal(t, ShardStoreBackend, c.Backend)
	require.NotNil(t, c.Logger)
}

func TestNewConfigAppliesOptions(t *testing.T) {
	c := NewConfig(WithCacheRoot("/tmp/cache"), WithBackend(SqliteBackend), WithReadOnly(true))
	assert.Equal(t, "/tmp/cache", c.CacheRoot)
	assert.Equal(t, SqliteBackend, c.Backend)
	assert.True(t, c.OpenReadOnly)
}

func TestWithDefaultsFillsZeroValuedStructLiteral(t *testing.T) {
	c := Config{Backend: SqliteBackend}.withDefaults()
	assert.Equal(t, ".cache/index", c.CacheRoot)
	require.NotNil(t, c.Logger)
	assert.Equal(t, SqliteBackend, c.Backend, "withDefaults must not clobber fields the caller set")
}

func TestWithDefaultsLeavesNonZeroFieldsAlone(t *testing.T) {
	c := Config{CacheRoot: "/explicit"}.withDefaults()
	assert.Equal(t, "/explicit", c.CacheRoot)
}

func TestLoadConfigFileMissingFileYieldsNoOptions(t *testing.T) {
	opts, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Nil(t, opts)
}

func TestLoadConfigFileParsesBackendAndCacheRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_root: /work/.cache\nbackend: sqlite\n"), 0o644))

	opts, err := LoadConfigFile(path)
	require.NoError(t, err)

	c := NewConfig(opts...)
	assert.Equal(t, "/work/.cache", c.CacheRoot)
	assert.Equal(t, SqliteBackend, c.Backend)
}

func TestLoadConfigFileRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: cobol\n"), 0o644))

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}
