// Package symindex implements the persistent symbol index that backs
// code-navigation, completion, and rename operations for a language server
// workspace. It maps source packages to symbols, reference sites,
// inheritance/extend relations, and cross-language bridges, and persists
// them across restarts so queries over a large workspace run in roughly
// constant time regardless of workspace size.
//
// # Pipeline
//
// The index is driven externally: a parser/analyzer walks a package's AST
// and streams facts — symbols, references, relations, extend items,
// cross-symbols — into an [UpdateController], which stages them into a
// content-addressed [Shard], persists it, and publishes it into the live
// query surface. The [QueryEngine] answers ID-, name-, reference- and
// relation-based lookups from
// whichever backend (in-memory shards, a dirty-buffer overlay, or a SQL
// database) the workspace is configured to use.
//
// # Usage
//
//	idx, err := symindex.Open(symindex.Config{CacheRoot: "/work/.cache"})
//	if err != nil { ... }
//	defer idx.Close()
//
//	_, err = idx.Update(ctx, "example/pkg", digest, astWalker)
//	sym, ok := idx.Query().LookupByID(ctx, id)
//
// # Scope
//
// The AST walker, the JSON-RPC dispatcher, the formatter, and the macro
// expander are external collaborators named only by the interfaces this
// package consumes. This package is not a source of truth (the source files
// are) and is not transactional across packages — each package is its own
// unit of atomicity.
package symindex

import (
	"github.com/jward/symindex/internal/model"
	"github.com/jward/symindex/internal/overlay"
)

// The data model is defined in internal/model and re-exported here as type
// aliases so callers use symindex.Symbol etc. without ever importing the
// internal package directly (see internal/model's doc comment for why the
// types live there instead of here).
type (
	SymbolID       = model.SymbolID
	Position       = model.Position
	Range          = model.Range
	SymbolKind     = model.SymbolKind
	KindMask       = model.KindMask
	SymbolFlag     = model.SymbolFlag
	CommentStyle   = model.CommentStyle
	CommentKind    = model.CommentKind
	Comment        = model.Comment
	CompletionItem = model.CompletionItem
	Symbol         = model.Symbol
	RefKind        = model.RefKind
	Ref            = model.Ref
	Predicate      = model.Predicate
	Relation       = model.Relation
	ExtendItem     = model.ExtendItem
	CrossType      = model.CrossType
	CrossSymbol    = model.CrossSymbol
	FileRecord     = model.FileRecord
	RefEntry       = model.RefEntry
	ExtendEntry    = model.ExtendEntry
	Shard          = model.Shard
	OverlayEntry   = overlay.Entry
)

const NoSymbol = model.NoSymbol

const (
	KindUnknown          = model.KindUnknown
	KindModule           = model.KindModule
	KindClass            = model.KindClass
	KindInterface        = model.KindInterface
	KindStruct           = model.KindStruct
	KindEnum             = model.KindEnum
	KindFunction         = model.KindFunction
	KindMethod           = model.KindMethod
	KindProperty         = model.KindProperty
	KindVariable         = model.KindVariable
	KindTypeAlias        = model.KindTypeAlias
	KindMacro            = model.KindMacro
	KindGenericParameter = model.KindGenericParameter
	KindConstructor      = model.KindConstructor
	KindField            = model.KindField
)

const (
	FlagDeprecated  = model.FlagDeprecated
	FlagMemberParam = model.FlagMemberParam
	FlagCjoSym      = model.FlagCjoSym
)

const (
	CommentStyleLine  = model.CommentStyleLine
	CommentStyleBlock = model.CommentStyleBlock
)

const (
	CommentLeading  = model.CommentLeading
	CommentInner    = model.CommentInner
	CommentTrailing = model.CommentTrailing
)

const (
	RefReference   = model.RefReference
	RefDeclaration = model.RefDeclaration
	RefDefinition  = model.RefDefinition
	RefCall        = model.RefCall
	RefSuperCall   = model.RefSuperCall
	RefOverride    = model.RefOverride
)

const (
	PredicateUnknown = model.PredicateUnknown
	BaseOf           = model.BaseOf
	Extend           = model.Extend
	Overrides        = model.Overrides
	OverriddenBy     = model.OverriddenBy
	InheritsFrom     = model.InheritsFrom
	InheritedBy      = model.InheritedBy
)

// MaskOf builds a KindMask containing exactly the given kinds.
func MaskOf(kinds ...SymbolKind) KindMask {
	return model.MaskOf(kinds...)
}
