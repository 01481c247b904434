package symindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jward/symindex/internal/memindex"
	"github.com/jward/symindex/internal/overlay"
)

func newTestQueryEngine(t *testing.T) (*QueryEngine, *overlay.DirtyOverlay, *memindex.MemIndex) {
	t.Helper()
	ov := overlay.New()
	mem := memindex.New()
	return newQueryEngine(ov, mem, nil, ShardStoreBackend, zap.NewNop()), ov, mem
}

func TestLookupByIDPrefersOverlayOverDurableBackend(t *testing.T) {
	q, ov, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{PkgName: "pkg", HashCode: "h", Symbols: []Symbol{{ID: 1, Name: "OnDisk"}}})
	ov.Put(&OverlayEntry{URI: "file.go", Symbols: []Symbol{{ID: 1, Name: "Dirty"}}})

	sym, ok := q.LookupByID(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, "Dirty", sym.Name)
}

func TestMatchingIsCaseInsensitivePrefix(t *testing.T) {
	q, _, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{PkgName: "pkg", HashCode: "h", Symbols: []Symbol{
		{ID: 1, Name: "WidgetFactory"},
		{ID: 2, Name: "gadget"},
	}})

	out := q.Matching(context.Background(), "widget", "", 0)
	require.Len(t, out, 1)
	assert.Equal(t, "WidgetFactory", out[0].Name)
}

func TestMatchingEmptyPrefixMatchesEverything(t *testing.T) {
	q, _, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{PkgName: "pkg", HashCode: "h", Symbols: []Symbol{
		{ID: 1, Name: "A"}, {ID: 2, Name: "B"},
	}})

	out := q.Matching(context.Background(), "", "", 0)
	assert.Len(t, out, 2)
}

func TestMatchingSplitsIdentifierTokensAndRanksPrefixAboveTokenMatch(t *testing.T) {
	q, _, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{PkgName: "pkg", HashCode: "h", Symbols: []Symbol{
		{ID: 1, Name: "XMLParser"},
		{ID: 2, Name: "Parser"},
		{ID: 3, Name: "Unrelated"},
	}})

	out := q.Matching(context.Background(), "par", "", 0)
	require.Len(t, out, 2)
	assert.Equal(t, "Parser", out[0].Name, "a whole-name prefix match ranks above a token-only match")
	assert.Equal(t, "XMLParser", out[1].Name)
	assert.Greater(t, out[0].Rank, out[1].Rank)
}

func TestMatchingFiltersByScopeAndFlags(t *testing.T) {
	q, _, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{PkgName: "pkg", HashCode: "h", Symbols: []Symbol{
		{ID: 1, Name: "Widget", Scope: "pkg.inner", Flags: FlagDeprecated},
		{ID: 2, Name: "WidgetTwo", Scope: "pkg.outer"},
	}})

	byScope := q.Matching(context.Background(), "widget", "pkg.inner", 0)
	require.Len(t, byScope, 1)
	assert.Equal(t, "Widget", byScope[0].Name)

	byFlags := q.Matching(context.Background(), "widget", "", FlagDeprecated)
	require.Len(t, byFlags, 1)
	assert.Equal(t, "Widget", byFlags[0].Name)
}

func TestMatchingPopulatesReferenceCount(t *testing.T) {
	q, _, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{
		PkgName:  "pkg",
		HashCode: "h",
		Symbols:  []Symbol{{ID: 1, Name: "Widget"}},
		Refs: []RefEntry{
			{Symbol: 1, Ref: Ref{Symbol: 1, Kind: RefCall}},
			{Symbol: 1, Ref: Ref{Symbol: 1, Kind: RefCall}},
		},
	})

	out := q.Matching(context.Background(), "widget", "", 0)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].References)
}

func TestRelationsOverridesRewritesFromOverriddenBy(t *testing.T) {
	q, _, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{
		PkgName:  "pkg",
		HashCode: "h",
		Relations: []Relation{
			{Subject: 2, Predicate: OverriddenBy, Object: 1},
		},
	})

	rels := q.Relations(context.Background(), 1, Overrides)
	require.Len(t, rels, 1)
	assert.Equal(t, Overrides, rels[0].Predicate)
	assert.Equal(t, SymbolID(2), rels[0].Subject)
}

func TestRelationsDownAndUpFilterByDirection(t *testing.T) {
	q, _, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{
		PkgName:  "pkg",
		HashCode: "h",
		Relations: []Relation{
			{Subject: 1, Predicate: InheritsFrom, Object: 2},
			{Subject: 3, Predicate: InheritsFrom, Object: 1},
		},
	})

	down := q.RelationsDown(context.Background(), 1, InheritsFrom)
	require.Len(t, down, 1)
	assert.Equal(t, SymbolID(2), down[0].Object)

	up := q.RelationsUp(context.Background(), 1, InheritsFrom)
	require.Len(t, up, 1)
	assert.Equal(t, SymbolID(3), up[0].Subject)
}

func TestReferredReflectsReferencesTo(t *testing.T) {
	q, _, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{PkgName: "pkg", HashCode: "h"})
	assert.False(t, q.Referred(context.Background(), 1, nil))

	mem.Publish(&Shard{
		PkgName:  "pkg",
		HashCode: "h2",
		Refs:     []RefEntry{{Symbol: 1, Ref: Ref{Symbol: 1, Kind: RefCall}}},
	})
	assert.True(t, q.Referred(context.Background(), 1, nil))
}

func TestStatsReportsBackendAndPackageCount(t *testing.T) {
	q, _, mem := newTestQueryEngine(t)
	mem.Publish(&Shard{PkgName: "pkg", HashCode: "h"})

	s := q.Stats()
	assert.Equal(t, "shardstore", s.Backend)
	assert.Equal(t, 1, s.Packages)
}
