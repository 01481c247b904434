// Package memindex holds the decoded content of every currently-loaded
// shard, partitioned by package, and serves linear scans over it. A
// package's slabs are swapped in atomically when a new shard is published,
// so readers never observe a half-updated package.
package memindex

import (
	"sync"
	"sync/atomic"

	"github.com/jward/symindex/internal/model"
)

// slab is the set of facts for one package, the same shape as a decoded
// shard. It is always replaced wholesale, never mutated in place, so a
// *slab obtained by a reader stays internally consistent even if the
// package is republished concurrently.
type slab struct {
	pkgName      string
	hashCode     string
	symbols      []model.Symbol
	refs         []model.RefEntry
	relations    []model.Relation
	extends      []model.ExtendEntry
	crossSymbols []model.CrossSymbol
}

// MemIndex is the read-only in-memory view over all loaded packages.
type MemIndex struct {
	mu       sync.RWMutex
	packages map[string]*atomic.Pointer[slab]
}

// New returns an empty MemIndex.
func New() *MemIndex {
	return &MemIndex{packages: make(map[string]*atomic.Pointer[slab])}
}

// Publish atomically installs shard as the current content of its package,
// creating the package's slot if this is the first shard seen for it.
func (m *MemIndex) Publish(shard *model.Shard) {
	s := &slab{
		pkgName:      shard.PkgName,
		hashCode:     shard.HashCode,
		symbols:      shard.Symbols,
		refs:         shard.Refs,
		relations:    shard.Relations,
		extends:      shard.Extends,
		crossSymbols: shard.CrossSymbols,
	}

	m.mu.RLock()
	ptr, ok := m.packages[shard.PkgName]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		ptr, ok = m.packages[shard.PkgName]
		if !ok {
			ptr = &atomic.Pointer[slab]{}
			m.packages[shard.PkgName] = ptr
		}
		m.mu.Unlock()
	}
	ptr.Store(s)
}

// Evict removes a package's slab entirely, e.g. when the package is
// deleted from the workspace.
func (m *MemIndex) Evict(pkgName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.packages, pkgName)
}

// HashOf returns the hash code of the currently-published shard for
// pkgName, and whether one exists.
func (m *MemIndex) HashOf(pkgName string) (string, bool) {
	s := m.load(pkgName)
	if s == nil {
		return "", false
	}
	return s.hashCode, true
}

func (m *MemIndex) load(pkgName string) *slab {
	m.mu.RLock()
	ptr, ok := m.packages[pkgName]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return ptr.Load()
}

// Packages returns every package name currently published.
func (m *MemIndex) Packages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.packages))
	for name := range m.packages {
		out = append(out, name)
	}
	return out
}

// LookupByID scans every loaded package's symbol slab for id. Per spec.md
// §4.3, shards deliberately carry no internal ID index to stay compact;
// this is a linear scan within (and, here, across) packages.
func (m *MemIndex) LookupByID(id model.SymbolID) (model.Symbol, bool) {
	for _, pkg := range m.Packages() {
		s := m.load(pkg)
		if s == nil {
			continue
		}
		for _, sym := range s.symbols {
			if sym.ID == id {
				return sym, true
			}
		}
	}
	return model.Symbol{}, false
}

// LookupByName yields every symbol across every loaded package whose name
// is an exact match, in per-package insertion order.
func (m *MemIndex) LookupByName(name string) []model.Symbol {
	var out []model.Symbol
	for _, pkg := range m.Packages() {
		s := m.load(pkg)
		if s == nil {
			continue
		}
		for _, sym := range s.symbols {
			if sym.Name == name {
				out = append(out, sym)
			}
		}
	}
	return out
}

// IterateSymbols yields every symbol across every loaded package,
// optionally restricted to a single package name, a scope prefix, and/or a
// kind mask. A zero kindMask means "all kinds."
func (m *MemIndex) IterateSymbols(pkgName, scopePrefix string, kindMask model.KindMask) []model.Symbol {
	var out []model.Symbol
	pkgs := m.Packages()
	if pkgName != "" {
		pkgs = []string{pkgName}
	}
	for _, pkg := range pkgs {
		s := m.load(pkg)
		if s == nil {
			continue
		}
		for _, sym := range s.symbols {
			if scopePrefix != "" && !hasPrefix(sym.Scope, scopePrefix) {
				continue
			}
			if kindMask != 0 && !kindMask.Has(sym.Kind) {
				continue
			}
			out = append(out, sym)
		}
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// ReferencesTo yields every Ref targeting id, across every loaded package,
// optionally filtered by kind. A nil kind means "all kinds" — expressed
// here as a *model.RefKind so "no filter" is representable without
// overloading RefReference as a sentinel.
func (m *MemIndex) ReferencesTo(id model.SymbolID, kind *model.RefKind) []model.Ref {
	var out []model.Ref
	for _, pkg := range m.Packages() {
		s := m.load(pkg)
		if s == nil {
			continue
		}
		for _, re := range s.refs {
			if re.Symbol != id {
				continue
			}
			if kind != nil && re.Ref.Kind != *kind {
				continue
			}
			out = append(out, re.Ref)
		}
	}
	return out
}

// FileReferences yields every (Ref, SymbolID) pair whose Ref.Location lies
// in uri, optionally filtered by kind.
func (m *MemIndex) FileReferences(uri string, kind *model.RefKind) []model.RefEntry {
	var out []model.RefEntry
	for _, pkg := range m.Packages() {
		s := m.load(pkg)
		if s == nil {
			continue
		}
		for _, re := range s.refs {
			if re.Ref.Location.FileURI != uri {
				continue
			}
			if kind != nil && re.Ref.Kind != *kind {
				continue
			}
			out = append(out, re)
		}
	}
	return out
}

// Relations yields every relation where predicate == p and either Subject
// or Object equals id. A relation where both Subject and Object equal id
// is yielded twice, matching spec.md §4.3's stated duplication behavior.
func (m *MemIndex) Relations(id model.SymbolID, p model.Predicate) []model.Relation {
	var out []model.Relation
	for _, pkg := range m.Packages() {
		s := m.load(pkg)
		if s == nil {
			continue
		}
		for _, rel := range s.relations {
			if rel.Predicate != p {
				continue
			}
			if rel.Subject == id {
				out = append(out, rel)
			}
			if rel.Object == id {
				out = append(out, rel)
			}
		}
	}
	return out
}

// ExtendsFor yields every extend item for (packageName, extendedID).
func (m *MemIndex) ExtendsFor(packageName string, extendedID model.SymbolID) []model.ExtendItem {
	s := m.load(packageName)
	if s == nil {
		return nil
	}
	var out []model.ExtendItem
	for _, ex := range s.extends {
		if ex.Item.ExtendedType == extendedID {
			out = append(out, ex.Item)
		}
	}
	return out
}

// PackagesReferencingSymbols returns every loaded package other than
// excludePkg holding a ref, relation, or extends row against any symbol in
// ids — the blast-radius primitive an UpdateController consults after
// publishing a shard whose symbol set or signatures changed, to find which
// other packages need re-resolution.
func (m *MemIndex) PackagesReferencingSymbols(ids []model.SymbolID, excludePkg string) []string {
	want := make(map[model.SymbolID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	for _, pkg := range m.Packages() {
		if pkg == excludePkg {
			continue
		}
		s := m.load(pkg)
		if s == nil {
			continue
		}
		hit := false
		for _, re := range s.refs {
			if _, ok := want[re.Symbol]; ok {
				hit = true
				break
			}
		}
		if !hit {
			for _, rel := range s.relations {
				if _, ok := want[rel.Subject]; ok {
					hit = true
					break
				}
				if _, ok := want[rel.Object]; ok {
					hit = true
					break
				}
			}
		}
		if !hit {
			for _, ex := range s.extends {
				if _, ok := want[ex.Item.Symbol]; ok {
					hit = true
					break
				}
				if _, ok := want[ex.Item.ExtendedType]; ok {
					hit = true
					break
				}
			}
		}
		if hit {
			seen[pkg] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for pkg := range seen {
		out = append(out, pkg)
	}
	return out
}

// CrossSymbols yields every cross-symbol bridge in pkg whose Name matches
// name exactly, or every bridge in pkg when name is empty.
func (m *MemIndex) CrossSymbols(pkg, name string) []model.CrossSymbol {
	s := m.load(pkg)
	if s == nil {
		return nil
	}
	var out []model.CrossSymbol
	for _, cs := range s.crossSymbols {
		if name == "" || cs.Name == name {
			out = append(out, cs)
		}
	}
	return out
}
