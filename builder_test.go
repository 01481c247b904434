package symindex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/symindex/internal/cancel"
)

func TestShardBuilderBuildFreezesEmittedFacts(t *testing.T) {
	b := NewShardBuilder("pkg")
	b.EmitSymbol(Symbol{ID: 1, Name: "Widget"})
	b.EmitRef(1, Ref{Kind: RefCall})
	b.EmitRelation(Relation{Subject: 1, Predicate: InheritsFrom, Object: 2})
	b.EmitExtend(1, ExtendItem{ExtendedType: 2})
	b.EmitCross(CrossSymbol{ID: 1, Name: "widget_bridge"})

	shard := b.Build("deadbeef")
	require.Equal(t, "pkg", shard.PkgName)
	assert.Equal(t, "deadbeef", shard.HashCode)
	assert.Len(t, shard.Symbols, 1)
	require.Len(t, shard.Refs, 1)
	assert.Equal(t, SymbolID(1), shard.Refs[0].Symbol)
	assert.Len(t, shard.Relations, 1)
	assert.Len(t, shard.Extends, 1)
	assert.Len(t, shard.CrossSymbols, 1)
}

func TestShardBuilderEmitIsConcurrencySafe(t *testing.T) {
	b := NewShardBuilder("pkg")
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.EmitSymbol(Symbol{ID: SymbolID(i), Name: "Sym"})
		}()
	}
	wg.Wait()

	shard := b.Build("h")
	assert.Len(t, shard.Symbols, 100)
}

func TestASTWalkerErrorAbortsBuild(t *testing.T) {
	var walk ASTWalker = func(tok *cancel.Token, b *ShardBuilder) error {
		b.EmitSymbol(Symbol{ID: 1})
		return assert.AnError
	}
	b := NewShardBuilder("pkg")
	err := walk(cancel.New(), b)
	assert.ErrorIs(t, err, assert.AnError)
}
