package symindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/symindex/internal/cancel"
)

func TestOpenShardStoreBackendThenUpdateAndQuery(t *testing.T) {
	idx, err := Open(Config{CacheRoot: t.TempDir()})
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.Update(context.Background(), "pkg", "d1", func(tok *cancel.Token, b *ShardBuilder) error {
		b.EmitSymbol(Symbol{ID: 1, Name: "Widget"})
		return nil
	})
	require.NoError(t, err)

	sym, ok := idx.Query().LookupByID(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, "Widget", sym.Name)
}

func TestOpenShardStoreBackendWarmStartsFromDisk(t *testing.T) {
	dir := t.TempDir()

	idx1, err := Open(Config{CacheRoot: dir})
	require.NoError(t, err)
	_, err = idx1.Update(context.Background(), "pkg", "d1", func(tok *cancel.Token, b *ShardBuilder) error {
		b.EmitSymbol(Symbol{ID: 1, Name: "Widget"})
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, idx1.Close())

	idx2, err := Open(Config{CacheRoot: dir})
	require.NoError(t, err)
	defer idx2.Close()

	sym, ok := idx2.Query().LookupByID(context.Background(), 1)
	require.True(t, ok, "a fresh Open must load existing shards before any Update call")
	assert.Equal(t, "Widget", sym.Name)
}

func TestOpenSqliteBackendInMemory(t *testing.T) {
	idx, err := Open(Config{Backend: SqliteBackend, OpenInMemory: true})
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.Update(context.Background(), "pkg", "d1", func(tok *cancel.Token, b *ShardBuilder) error {
		b.EmitSymbol(Symbol{ID: 1, Name: "Widget"})
		return nil
	})
	require.NoError(t, err)

	sym, ok := idx.Query().LookupByID(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, "Widget", sym.Name)
}

func TestPutOverlayShadowsDurableBackend(t *testing.T) {
	idx, err := Open(Config{CacheRoot: t.TempDir()})
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.Update(context.Background(), "pkg", "d1", func(tok *cancel.Token, b *ShardBuilder) error {
		b.EmitSymbol(Symbol{ID: 1, Name: "OnDisk"})
		b.EmitRef(1, Ref{Kind: RefReference, Location: Range{FileURI: "file.go"}})
		return nil
	})
	require.NoError(t, err)

	before := idx.Query().FileReferences(context.Background(), "file.go", nil)
	require.Len(t, before, 1, "the durable backend's ref should be visible before any overlay is installed")

	idx.PutOverlay(&OverlayEntry{URI: "file.go"}) // dirty buffer with no refs yet

	after := idx.Query().FileReferences(context.Background(), "file.go", nil)
	assert.Empty(t, after, "an overlay entry shadows the durable backend's refs for its URI entirely")

	idx.EvictOverlay("file.go")
	restored := idx.Query().FileReferences(context.Background(), "file.go", nil)
	assert.Len(t, restored, 1, "evicting the overlay restores the durable backend's view")
}

func TestCancelUnblocksToken(t *testing.T) {
	idx, err := Open(Config{CacheRoot: t.TempDir()})
	require.NoError(t, err)
	defer idx.Close()

	idx.Cancel()
	assert.True(t, idx.tok.Cancelled())
}
