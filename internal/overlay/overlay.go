// Package overlay implements the dirty-buffer shadow store: the indexed
// content of files whose in-editor buffer has been reparsed but not yet
// persisted as a shard. The QueryEngine consults this store before falling
// back to the durable backend, so an unsaved edit is reflected in queries
// immediately.
package overlay

import (
	"sync"

	"github.com/jward/symindex/internal/model"
)

// Entry is the lightweight shard-equivalent for a single file: symbols,
// refs, and relations confined to that file, as opposed to a full shard's
// package-wide scope.
type Entry struct {
	URI       string
	Symbols   []model.Symbol
	Refs      []model.RefEntry
	Relations []model.Relation
}

// DirtyOverlay is a URI-keyed map of Entry, safe for concurrent use.
type DirtyOverlay struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New returns an empty DirtyOverlay.
func New() *DirtyOverlay {
	return &DirtyOverlay{entries: make(map[string]*Entry)}
}

// Put installs or replaces the overlay entry for entry.URI, called by the
// parser callback whenever a buffer is reparsed incrementally.
func (o *DirtyOverlay) Put(entry *Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[entry.URI] = entry
}

// Evict removes the overlay entry for uri, called on buffer close or once
// a save-driven reindex has published a fresh shard superseding it.
func (o *DirtyOverlay) Evict(uri string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, uri)
}

// Get returns the overlay entry for uri, if any.
func (o *DirtyOverlay) Get(uri string) (*Entry, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.entries[uri]
	return e, ok
}

// Has reports whether uri currently has an overlay entry, letting a caller
// mask on-disk results for that file without fetching the full entry.
func (o *DirtyOverlay) Has(uri string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.entries[uri]
	return ok
}

// URIs returns every file URI currently shadowed by an overlay entry.
func (o *DirtyOverlay) URIs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.entries))
	for uri := range o.entries {
		out = append(out, uri)
	}
	return out
}

// LookupByID scans every overlay entry for a symbol with the given ID,
// letting the QueryEngine check the overlay before the durable backend.
func (o *DirtyOverlay) LookupByID(id model.SymbolID) (model.Symbol, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, e := range o.entries {
		for _, sym := range e.Symbols {
			if sym.ID == id {
				return sym, true
			}
		}
	}
	return model.Symbol{}, false
}
