// Package model holds the persistent symbol index's data model: the plain
// value types shared by the codec, shard store, mem index, overlay, and SQL
// backend. It exists as a separate internal package (rather than living in
// the root package directly) purely to keep the dependency graph acyclic —
// every storage-layer package needs these types, and the root package in
// turn needs the storage-layer packages, so the types themselves cannot
// live in the root package. The root package re-exports every type here as
// a type alias, so callers of this module never see or import this
// package directly.
package model

// SymbolID is an opaque 64-bit identifier for a declaration, stable across
// reparses of the same declaration. Zero means "none/invalid". SymbolIDs are
// derived externally by the AST walker; this package only encodes, decodes,
// and compares them.
type SymbolID uint64

// NoSymbol is the reserved "none/invalid" SymbolID.
const NoSymbol SymbolID = 0

// Position is a zero-based (fileID, line, column) triple. The zero value
// means "unknown".
type Position struct {
	FileID uint32
	Line   uint32
	Column uint32
}

// IsZero reports whether p is the "unknown" position.
func (p Position) IsZero() bool {
	return p == Position{}
}

// Less reports whether p sorts strictly before o in (line, column) order.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Range is a half-open-by-convention span [Begin, End] within a file. The
// invariant Begin <= End (in lexicographic (line, column) order) is
// maintained by callers that construct a Range; this package does not
// normalize out-of-order ranges, it only stores and round-trips them.
type Range struct {
	Begin   Position
	End     Position
	FileURI string
}

// IsZero reports whether r is the zero Range (no location recorded).
func (r Range) IsZero() bool {
	return r.FileURI == "" && r.Begin.IsZero() && r.End.IsZero()
}

// SymbolKind enumerates the declaration kinds a Symbol can have.
type SymbolKind uint8

const (
	KindUnknown SymbolKind = iota
	KindModule
	KindClass
	KindInterface
	KindStruct
	KindEnum
	KindFunction
	KindMethod
	KindProperty
	KindVariable
	KindTypeAlias
	KindMacro
	KindGenericParameter
	KindConstructor
	KindField
)

// KindMask is a bitset over SymbolKind values, used to restrict fuzzy
// completion and enumeration queries to a subset of kinds. A fixed uint64
// bitset is sufficient here (there are fewer than 64 kinds); see DESIGN.md
// for why this does not pull in a general-purpose bitmap dependency.
type KindMask uint64

// MaskOf builds a KindMask containing exactly the given kinds.
func MaskOf(kinds ...SymbolKind) KindMask {
	var m KindMask
	for _, k := range kinds {
		m |= 1 << uint(k)
	}
	return m
}

// Has reports whether the mask includes kind.
func (m KindMask) Has(kind SymbolKind) bool {
	return m&(1<<uint(kind)) != 0
}

// SymbolFlag is a bitset of auxiliary boolean properties carried on a
// Symbol, opaque to the index beyond the flags it is asked to filter on.
type SymbolFlag uint32

const (
	FlagDeprecated SymbolFlag = 1 << iota
	FlagMemberParam
	FlagCjoSym
)

// Has reports whether f includes flag.
func (f SymbolFlag) Has(flag SymbolFlag) bool {
	return f&flag != 0
}

// CommentStyle distinguishes line vs. block comment syntax.
type CommentStyle uint8

const (
	CommentStyleLine CommentStyle = iota
	CommentStyleBlock
)

// CommentKind distinguishes where a comment sits relative to its symbol.
type CommentKind uint8

const (
	CommentLeading CommentKind = iota
	CommentInner
	CommentTrailing
)

// Comment is a single doc/inline comment attached to a Symbol.
type Comment struct {
	Style CommentStyle
	Kind  CommentKind
	Text  string
}

// CompletionItem is a precomputed (label, insertText) pair offered for fast
// completion without re-deriving the insert text at query time.
type CompletionItem struct {
	Label      string
	InsertText string
}

// Symbol is a declaration indexed at a point in a source file. See spec.md
// §3 for the full field-by-field rationale; fields here are grouped by
// concern rather than listed in spec order.
type Symbol struct {
	ID    SymbolID
	Name  string
	Scope string // fully-qualified enclosing path
	Kind  SymbolKind

	SubKind    uint32 // opaque bitset, meaning owned by the AST walker
	Language   uint32
	Properties uint32

	Location    Range // identifier occurrence
	Declaration Range // full declaration span

	Signature                  string
	ReturnType                 string
	Type                       string
	Documentation              string
	TemplateSpecializationArgs string
	CompletionSnippetSuffix    string
	Modifier                   string
	Syscap                     string

	Flags SymbolFlag

	CurModule    string
	PkgModifier  string
	CurMacroCall Range // zero if not inside a macro expansion

	CommentsLeading  []Comment
	CommentsInner    []Comment
	CommentsTrailing []Comment

	CompletionItems []CompletionItem

	// Rank and References are joined in at query time; they are never
	// part of the persisted shard.
	Rank       float64
	References int
}

// RefKind enumerates the ways a Ref can use a symbol.
type RefKind uint8

const (
	RefReference RefKind = iota
	RefDeclaration
	RefDefinition
	RefCall
	RefSuperCall
	RefOverride
)

// Ref records one use site of a symbol.
type Ref struct {
	Symbol    SymbolID // the symbol referenced (implicit key in the shard's refs slab)
	Location  Range
	Kind      RefKind
	Container SymbolID // enclosing declaration; NoSymbol if top-level
	IsCjoRef  bool
	IsSuper   bool
}

// Predicate enumerates the directed edge kinds a Relation can carry.
type Predicate uint8

const (
	PredicateUnknown Predicate = iota
	BaseOf
	Extend
	Overrides
	OverriddenBy
	InheritsFrom
	InheritedBy
)

// Dual returns the predicate used internally to answer a query for p, and
// whether each result's Predicate must be rewritten back to p before being
// reported to the caller (Subject and Object are left as stored). Only Overrides has a dual today: a query for Overrides is
// answered by querying OverriddenBy edges and reporting them back as
// Overrides (spec.md §4.6, §9 Open Question 1).
func (p Predicate) Dual() (query Predicate, rewrite bool) {
	if p == Overrides {
		return OverriddenBy, true
	}
	return p, false
}

// Relation is a directed edge (Subject, Predicate, Object) between two
// symbols.
type Relation struct {
	Subject   SymbolID
	Predicate Predicate
	Object    SymbolID
}

// ExtendItem associates a type symbol with the decl that extends it, keyed
// by (package name, extended symbol ID) at lookup time.
type ExtendItem struct {
	Symbol        SymbolID // the extending declaration
	ExtendedType  SymbolID
	Modifier      string
	InterfaceName string
}

// CrossType enumerates the kinds of cross-language bridge a CrossSymbol
// can represent.
type CrossType uint8

// CrossSymbol is a cross-language bridge linking a declaration to its
// counterpart in another language.
type CrossSymbol struct {
	ID            SymbolID
	Name          string
	CrossType     CrossType
	Container     SymbolID
	ContainerName string
	Location      Range
	Declaration   Range
}

// FileRecord describes one source file tracked by the index.
type FileRecord struct {
	FileID  uint32
	URI     string
	Package string
	Module  string
	Digest  string
}

// RefEntry pairs a Ref with the SymbolID it refers to, matching the
// shard's refs slab shape (spec.md §3: "refs: slab<(SymbolID, Ref)>").
type RefEntry struct {
	Symbol SymbolID
	Ref    Ref
}

// ExtendEntry pairs a symbol with its ExtendItem, matching the shard's
// extends slab shape.
type ExtendEntry struct {
	Symbol SymbolID
	Item   ExtendItem
}

// Shard is the persistent unit of the index: one package version. A
// package has at most one current shard at a time, named by (PkgName,
// HashCode).
type Shard struct {
	PkgName  string
	HashCode string

	Symbols      []Symbol
	Refs         []RefEntry
	Relations    []Relation
	Extends      []ExtendEntry
	CrossSymbols []CrossSymbol
}
