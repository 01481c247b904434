package symindex

import (
	"sync"

	"github.com/jward/symindex/internal/cancel"
)

// ShardBuilder accumulates one package's facts as an external AST walker
// streams them in, then freezes them into a Shard. It is the Go shape of
// the AST callback interface (spec.md §6): emit_symbol, emit_ref,
// emit_relation, emit_extend, emit_cross, done — expressed as methods
// instead of a single polymorphic callable, and safe for the walker to
// call from more than one goroutine (errgroup-driven parallel extraction
// feeds several workers into one builder per package).
type ShardBuilder struct {
	pkgName string

	mu           sync.Mutex
	symbols      []Symbol
	refs         []RefEntry
	relations    []Relation
	extends      []ExtendEntry
	crossSymbols []CrossSymbol
}

// NewShardBuilder starts an empty builder for pkgName.
func NewShardBuilder(pkgName string) *ShardBuilder {
	return &ShardBuilder{pkgName: pkgName}
}

// EmitSymbol records one symbol.
func (b *ShardBuilder) EmitSymbol(s Symbol) {
	b.mu.Lock()
	b.symbols = append(b.symbols, s)
	b.mu.Unlock()
}

// EmitRef records one reference against id.
func (b *ShardBuilder) EmitRef(id SymbolID, r Ref) {
	b.mu.Lock()
	b.refs = append(b.refs, RefEntry{Symbol: id, Ref: r})
	b.mu.Unlock()
}

// EmitRelation records one relation edge.
func (b *ShardBuilder) EmitRelation(r Relation) {
	b.mu.Lock()
	b.relations = append(b.relations, r)
	b.mu.Unlock()
}

// EmitExtend records one extend item against id.
func (b *ShardBuilder) EmitExtend(id SymbolID, item ExtendItem) {
	b.mu.Lock()
	b.extends = append(b.extends, ExtendEntry{Symbol: id, Item: item})
	b.mu.Unlock()
}

// EmitCross records one cross-language bridge.
func (b *ShardBuilder) EmitCross(cs CrossSymbol) {
	b.mu.Lock()
	b.crossSymbols = append(b.crossSymbols, cs)
	b.mu.Unlock()
}

// Build freezes the accumulated facts into a Shard under hashCode. Called
// once the walker's terminal done() signal has fired.
func (b *ShardBuilder) Build(hashCode string) *Shard {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Shard{
		PkgName:      b.pkgName,
		HashCode:     hashCode,
		Symbols:      b.symbols,
		Refs:         b.refs,
		Relations:    b.relations,
		Extends:      b.extends,
		CrossSymbols: b.crossSymbols,
	}
}

// ASTWalker is the external collaborator UpdateController.Update drains one
// package through: it streams symbols/refs/relations/extends/cross-symbols
// into b by calling its Emit* methods, in any order, checking tok between
// items, then returns. A non-nil error aborts the update; the old shard
// remains authoritative (spec.md §4.7's failure semantics).
type ASTWalker func(tok *cancel.Token, b *ShardBuilder) error
