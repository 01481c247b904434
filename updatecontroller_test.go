package symindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jward/symindex/internal/cancel"
	"github.com/jward/symindex/internal/memindex"
	"github.com/jward/symindex/internal/shardstore"
)

func newTestUpdateController(t *testing.T) (*UpdateController, *memindex.MemIndex) {
	t.Helper()
	ss, err := shardstore.Open(t.TempDir())
	require.NoError(t, err)
	mem := memindex.New()
	return newUpdateController(ss, mem, nil, ShardStoreBackend, cancel.New(), zap.NewNop()), mem
}

func walkerEmitting(syms ...Symbol) ASTWalker {
	return func(tok *cancel.Token, b *ShardBuilder) error {
		for _, s := range syms {
			b.EmitSymbol(s)
		}
		return nil
	}
}

func TestUpdateSkipsWhenNotStale(t *testing.T) {
	uc, _ := newTestUpdateController(t)
	ctx := context.Background()

	res, err := uc.Update(ctx, "pkg", "d1", walkerEmitting(Symbol{ID: 1, Name: "Widget"}))
	require.NoError(t, err)
	assert.True(t, res.Updated)

	called := false
	res, err = uc.Update(ctx, "pkg", "d1", func(tok *cancel.Token, b *ShardBuilder) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, res.Updated, "same digest must not trigger a rebuild")
	assert.False(t, called, "walker must not run when the package is already current")
}

func TestUpdateRebuildsOnDigestChange(t *testing.T) {
	uc, mem := newTestUpdateController(t)
	ctx := context.Background()

	_, err := uc.Update(ctx, "pkg", "d1", walkerEmitting(Symbol{ID: 1, Name: "Old"}))
	require.NoError(t, err)

	res, err := uc.Update(ctx, "pkg", "d2", walkerEmitting(Symbol{ID: 2, Name: "New"}))
	require.NoError(t, err)
	assert.True(t, res.Updated)

	_, ok := mem.LookupByID(1)
	assert.False(t, ok, "republishing must replace the prior slab")
	sym, ok := mem.LookupByID(2)
	require.True(t, ok)
	assert.Equal(t, "New", sym.Name)
}

func TestUpdateReportsBlastRadiusAcrossPackages(t *testing.T) {
	uc, _ := newTestUpdateController(t)
	ctx := context.Background()

	_, err := uc.Update(ctx, "origin", "d1", walkerEmitting(
		Symbol{ID: 1, Name: "Widget", Kind: KindClass, Signature: "class Widget"},
	))
	require.NoError(t, err)

	_, err = uc.Update(ctx, "consumer", "d1", func(tok *cancel.Token, b *ShardBuilder) error {
		b.EmitSymbol(Symbol{ID: 10, Name: "User"})
		b.EmitRef(1, Ref{Kind: RefCall})
		return nil
	})
	require.NoError(t, err)

	res, err := uc.Update(ctx, "origin", "d2", walkerEmitting(
		Symbol{ID: 1, Name: "Widget", Kind: KindClass, Signature: "class Widget(int)"},
	))
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, []string{"consumer"}, res.AffectedPkgs)
}

func TestUpdateAbortsOnWalkerError(t *testing.T) {
	uc, _ := newTestUpdateController(t)
	_, err := uc.Update(context.Background(), "pkg", "d1", func(tok *cancel.Token, b *ShardBuilder) error {
		return assert.AnError
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUpdateFailed))
}

func TestUpdatePackagesRunsIndependentPackagesConcurrently(t *testing.T) {
	uc, _ := newTestUpdateController(t)
	batch := []PackageUpdate{
		{PkgName: "a", Digest: "d1", Walk: walkerEmitting(Symbol{ID: 1, Name: "A"})},
		{PkgName: "b", Digest: "d1", Walk: walkerEmitting(Symbol{ID: 2, Name: "B"})},
	}
	results, err := uc.UpdatePackages(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Updated)
	assert.True(t, results[1].Updated)
}
