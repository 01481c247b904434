package memindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/symindex/internal/model"
)

func shardWith(pkg string, syms ...model.Symbol) *model.Shard {
	return &model.Shard{PkgName: pkg, HashCode: "h", Symbols: syms}
}

func TestPublishThenLookupByID(t *testing.T) {
	m := New()
	m.Publish(shardWith("pkg", model.Symbol{ID: 1, Name: "Widget", Kind: model.KindClass}))

	sym, ok := m.LookupByID(1)
	require.True(t, ok)
	assert.Equal(t, "Widget", sym.Name)

	_, ok = m.LookupByID(999)
	assert.False(t, ok)
}

func TestPublishReplacesPriorSlabAtomically(t *testing.T) {
	m := New()
	m.Publish(shardWith("pkg", model.Symbol{ID: 1, Name: "Old"}))
	m.Publish(shardWith("pkg", model.Symbol{ID: 2, Name: "New"}))

	_, ok := m.LookupByID(1)
	assert.False(t, ok, "old symbol should be gone after republish")
	sym, ok := m.LookupByID(2)
	require.True(t, ok)
	assert.Equal(t, "New", sym.Name)
}

func TestEvict(t *testing.T) {
	m := New()
	m.Publish(shardWith("pkg", model.Symbol{ID: 1, Name: "Widget"}))
	m.Evict("pkg")
	_, ok := m.LookupByID(1)
	assert.False(t, ok)
	assert.Empty(t, m.Packages())
}

func TestIterateSymbolsFiltersByKindAndScope(t *testing.T) {
	m := New()
	m.Publish(shardWith("pkg",
		model.Symbol{ID: 1, Name: "A", Scope: "pkg.Foo", Kind: model.KindClass},
		model.Symbol{ID: 2, Name: "B", Scope: "pkg.Bar", Kind: model.KindFunction},
	))

	classes := m.IterateSymbols("", "", model.MaskOf(model.KindClass))
	require.Len(t, classes, 1)
	assert.Equal(t, "A", classes[0].Name)

	scoped := m.IterateSymbols("", "pkg.Foo", 0)
	require.Len(t, scoped, 1)
	assert.Equal(t, "A", scoped[0].Name)
}

func TestRelationsYieldsBothDirectionsAndDuplicatesSelfRelation(t *testing.T) {
	m := New()
	s := shardWith("pkg")
	s.Relations = []model.Relation{
		{Subject: 1, Predicate: model.OverriddenBy, Object: 2},
		{Subject: 3, Predicate: model.OverriddenBy, Object: 3},
	}
	m.Publish(s)

	rels := m.Relations(1, model.OverriddenBy)
	require.Len(t, rels, 1)

	selfRels := m.Relations(3, model.OverriddenBy)
	assert.Len(t, selfRels, 2, "a relation whose subject and object both equal id is yielded twice")
}

func TestReferencesToFiltersByKind(t *testing.T) {
	m := New()
	s := shardWith("pkg")
	s.Refs = []model.RefEntry{
		{Symbol: 1, Ref: model.Ref{Symbol: 1, Kind: model.RefCall}},
		{Symbol: 1, Ref: model.Ref{Symbol: 1, Kind: model.RefDeclaration}},
	}
	m.Publish(s)

	all := m.ReferencesTo(1, nil)
	assert.Len(t, all, 2)

	callKind := model.RefCall
	onlyCalls := m.ReferencesTo(1, &callKind)
	assert.Len(t, onlyCalls, 1)
}

func TestPackagesReferencingSymbolsExcludesOriginAndMatchesAcrossSlabs(t *testing.T) {
	m := New()
	m.Publish(shardWith("origin", model.Symbol{ID: 1, Name: "Widget"}))

	byRef := shardWith("consumer-ref")
	byRef.Refs = []model.RefEntry{{Symbol: 1, Ref: model.Ref{Symbol: 1}}}
	m.Publish(byRef)

	byRelation := shardWith("consumer-relation")
	byRelation.Relations = []model.Relation{{Subject: 1, Predicate: model.InheritsFrom, Object: 2}}
	m.Publish(byRelation)

	byExtend := shardWith("consumer-extend")
	byExtend.Extends = []model.ExtendEntry{{Symbol: 5, Item: model.ExtendItem{ExtendedType: 1}}}
	m.Publish(byExtend)

	unrelated := shardWith("bystander", model.Symbol{ID: 99, Name: "Unrelated"})
	m.Publish(unrelated)

	pkgs := m.PackagesReferencingSymbols([]model.SymbolID{1}, "origin")
	assert.ElementsMatch(t, []string{"consumer-ref", "consumer-relation", "consumer-extend"}, pkgs)
}
