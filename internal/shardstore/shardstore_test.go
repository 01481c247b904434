package shardstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/symindex/internal/model"
)

func newTestStore(t *testing.T) *ShardStore {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func testShard(pkg, hash string) *model.Shard {
	return &model.Shard{
		PkgName:  pkg,
		HashCode: hash,
		Symbols: []model.Symbol{
			{ID: 1, Name: "Widget", Kind: model.KindClass},
		},
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	name := fileName("example/pkg", "deadbeef")
	pkg, hash, ok := splitFileName(name)
	require.True(t, ok)
	assert.Equal(t, "example.pkg", pkg)
	assert.Equal(t, "deadbeef", hash)
}

func TestIsStaleBeforeAnyStore(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.IsStale("pkg", "anyhash"))
}

func TestStoreThenLoad(t *testing.T) {
	s := newTestStore(t)
	sh := testShard("pkg", "h1")
	require.NoError(t, s.Store(sh))

	assert.False(t, s.IsStale("pkg", "h1"))
	assert.True(t, s.IsStale("pkg", "h2"))

	got, err := s.Load("pkg")
	require.NoError(t, err)
	assert.Equal(t, sh.PkgName, got.PkgName)
	assert.Equal(t, sh.HashCode, got.HashCode)
	require.Len(t, got.Symbols, 1)
	assert.Equal(t, "Widget", got.Symbols[0].Name)
}

func TestStoreReplacesPreviousShard(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Store(testShard("pkg", "h1")))
	require.NoError(t, s.Store(testShard("pkg", "h2")))

	assert.False(t, s.IsStale("pkg", "h2"))
	got, err := s.Load("pkg")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.HashCode)

	_, err = s.Load("nonexistent")
	assert.Error(t, err)
}

func TestReleaseCachedMemoryThenReload(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Store(testShard("pkg", "h1")))
	_, err := s.Load("pkg")
	require.NoError(t, err)

	require.NoError(t, s.ReleaseCachedMemory())

	got, err := s.Load("pkg")
	require.NoError(t, err)
	assert.Equal(t, "h1", got.HashCode)
}

func TestLoadDeletesCorruptFileAndClearsHash(t *testing.T) {
	s := newTestStore(t)
	sh := testShard("pkg", "h1")
	require.NoError(t, s.Store(sh))

	path := s.path("pkg", "h1")
	require.NoError(t, os.WriteFile(path, []byte("not a valid shard"), 0o644))

	_, err := s.Load("pkg")
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "corrupt shard file should be deleted")
	assert.True(t, s.IsStale("pkg", "h1"), "recorded hash should be cleared so the package is rebuilt")
}

func TestIsStaleDetectsMissingFileOnDisk(t *testing.T) {
	s := newTestStore(t)
	sh := testShard("pkg", "h1")
	require.NoError(t, s.Store(sh))
	require.False(t, s.IsStale("pkg", "h1"))

	require.NoError(t, os.Remove(s.path("pkg", "h1")))

	assert.True(t, s.IsStale("pkg", "h1"), "a shard whose file vanished out-of-band is stale")
}

func TestOpenDiscoversExistingShards(t *testing.T) {
	root := t.TempDir()
	s1, err := Open(root)
	require.NoError(t, err)
	require.NoError(t, s1.Store(testShard("pkg", "h1")))

	s2, err := Open(root)
	require.NoError(t, err)
	assert.False(t, s2.IsStale("pkg", "h1"))
	assert.ElementsMatch(t, []string{"pkg"}, s2.Packages())
}
