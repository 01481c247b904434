package symindex

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jward/symindex/internal/memindex"
	"github.com/jward/symindex/internal/metrics"
	"github.com/jward/symindex/internal/overlay"
	"github.com/jward/symindex/internal/sqlbackend"
)

// QueryEngine answers ID-, name-, reference- and relation-based lookups
// against whichever durable backend the Index was configured with
// (SPEC_FULL.md §4.6). LookupByID and FileReferences check the dirty
// overlay before that backend; the other queries read the durable backend
// only and do not see overlay entries. Exactly one of mem or sql is
// non-nil, chosen once at construction by Config.Backend.
type QueryEngine struct {
	overlay *overlay.DirtyOverlay
	mem     *memindex.MemIndex
	sql     *sqlbackend.Backend
	backend Backend
	log     *zap.Logger
}

func newQueryEngine(ov *overlay.DirtyOverlay, mem *memindex.MemIndex, sql *sqlbackend.Backend, backend Backend, log *zap.Logger) *QueryEngine {
	return &QueryEngine{overlay: ov, mem: mem, sql: sql, backend: backend, log: log}
}

// observe records latency and result-count metrics for one QueryEngine
// operation. Called by each query method just before it returns.
func (q *QueryEngine) observe(op string, start time.Time, n int) {
	backend := q.backend.String()
	metrics.QueryLatencySeconds.WithLabelValues(op, backend).Observe(time.Since(start).Seconds())
	metrics.QueryResultsTotal.WithLabelValues(op, backend).Add(float64(n))
}

// LookupByID returns the symbol with the given ID, checking the dirty
// overlay before the durable backend.
func (q *QueryEngine) LookupByID(ctx context.Context, id SymbolID) (Symbol, bool) {
	start := time.Now()
	if sym, ok := q.overlay.LookupByID(id); ok {
		q.observe("lookup_by_id", start, 1)
		return sym, true
	}

	if q.mem != nil {
		sym, ok := q.mem.LookupByID(id)
		q.observe("lookup_by_id", start, boolToInt(ok))
		return sym, ok
	}

	sym, ok, err := q.sql.LookupByID(ctx, id)
	if err != nil {
		logAbsorbed(q.log, ErrQueryFailed, "LookupByID", err)
	}
	q.observe("lookup_by_id", start, boolToInt(ok))
	return sym, ok
}

// LookupByName returns every symbol across every loaded package with an
// exact name match.
func (q *QueryEngine) LookupByName(ctx context.Context, name string) []Symbol {
	start := time.Now()
	var out []Symbol
	if q.mem != nil {
		out = q.mem.LookupByName(name)
	} else {
		var err error
		out, err = q.sql.LookupByName(ctx, name)
		if err != nil {
			logAbsorbed(q.log, ErrQueryFailed, "LookupByName", err)
		}
	}
	q.observe("lookup_by_name", start, len(out))
	return out
}

// Matching returns every symbol whose name fuzzy-matches query — either a
// whole-string prefix match, or a match against query's identifier tokens
// (spec.md §4.6: "tokenize query into identifier tokens... search against
// an identifier-tokenizer-indexed column") — optionally restricted to a
// scope prefix and/or a non-zero flags mask, with Rank and References
// joined in and the result sorted by rank, best match first. An empty
// query matches everything (spec.md §9 Open Question 2). ShardStoreBackend
// has no index-side fuzzy matcher, so this scans MemIndex's in-memory
// symbols and ranks in Go; SqliteBackend pushes the scope/flags filter and
// the references join into SQL and ranks the (already name-filtered)
// result set in Go, since SQLite has no identifier tokenizer of its own.
func (q *QueryEngine) Matching(ctx context.Context, query, scope string, flagsMask SymbolFlag) []Symbol {
	start := time.Now()
	var out []Symbol
	if q.mem != nil {
		for _, sym := range q.mem.IterateSymbols("", scope, 0) {
			if flagsMask != 0 && sym.Flags&flagsMask == 0 {
				continue
			}
			matched, rank := matchRank(query, sym.Name)
			if !matched {
				continue
			}
			sym.Rank = rank
			sym.References = len(q.mem.ReferencesTo(sym.ID, nil))
			out = append(out, sym)
		}
	} else {
		candidates, err := q.sql.Matching(ctx, query, scope, flagsMask)
		if err != nil {
			logAbsorbed(q.log, ErrQueryFailed, "Matching", err)
		}
		for _, sym := range candidates {
			matched, rank := matchRank(query, sym.Name)
			if !matched {
				continue
			}
			sym.Rank = rank
			out = append(out, sym)
		}
	}
	sortByRankDescending(out)
	q.observe("matching", start, len(out))
	return out
}

// sortByRankDescending orders syms best-match-first, breaking ties by name
// so Matching's output is deterministic across calls (spec.md Testable
// Properties: "Matching(q, …) on call 1 and call 2 returns the same
// sequence").
func sortByRankDescending(syms []Symbol) {
	sort.SliceStable(syms, func(i, j int) bool {
		if syms[i].Rank != syms[j].Rank {
			return syms[i].Rank > syms[j].Rank
		}
		return syms[i].Name < syms[j].Name
	})
}

func hasPrefixFold(s, prefix string) bool {
	if len(prefix) == 0 {
		return true
	}
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// ReferencesTo returns every ref targeting id, optionally filtered to kind.
func (q *QueryEngine) ReferencesTo(ctx context.Context, id SymbolID, kind *RefKind) []Ref {
	start := time.Now()
	var out []Ref
	if q.mem != nil {
		out = q.mem.ReferencesTo(id, kind)
	} else {
		var err error
		out, err = q.sql.ReferencesTo(ctx, id, kind)
		if err != nil {
			logAbsorbed(q.log, ErrQueryFailed, "ReferencesTo", err)
		}
	}
	q.observe("references_to", start, len(out))
	return out
}

// FileReferences returns every (SymbolID, Ref) pair whose location lies in
// uri, optionally filtered to kind. The overlay is consulted first: if uri
// has a dirty-buffer entry, its refs shadow the durable backend's entirely
// (the overlay is the authoritative view of an unsaved file).
func (q *QueryEngine) FileReferences(ctx context.Context, uri string, kind *RefKind) []RefEntry {
	start := time.Now()
	if e, ok := q.overlay.Get(uri); ok {
		out := make([]RefEntry, 0, len(e.Refs))
		for _, re := range e.Refs {
			if kind != nil && re.Ref.Kind != *kind {
				continue
			}
			out = append(out, re)
		}
		q.observe("file_references", start, len(out))
		return out
	}

	var out []RefEntry
	if q.mem != nil {
		out = q.mem.FileReferences(uri, kind)
	} else {
		var err error
		out, err = q.sql.FileReferences(ctx, uri, kind)
		if err != nil {
			logAbsorbed(q.log, ErrQueryFailed, "FileReferences", err)
		}
	}
	q.observe("file_references", start, len(out))
	return out
}

// Referred reports whether id has at least one recorded reference,
// optionally restricted to kind — a cheap existence check layered over
// ReferencesTo for callers that only need a boolean (e.g. "is this safe to
// remove").
func (q *QueryEngine) Referred(ctx context.Context, id SymbolID, kind *RefKind) bool {
	return len(q.ReferencesTo(ctx, id, kind)) > 0
}

// Relations yields every relation where Predicate == p and either Subject
// or Object equals id. For Overrides, the stored OverriddenBy edges are
// queried and rewritten back to Overrides on the way out (spec.md §4.6, §9
// Open Question 1). MemIndex's own Relations has no notion of the dual, so
// for ShardStoreBackend the rewrite happens here; SqliteBackend's Relations
// is passed p unchanged and does the same rewrite itself.
func (q *QueryEngine) Relations(ctx context.Context, id SymbolID, p Predicate) []Relation {
	start := time.Now()
	queryPred, rewrite := p.Dual()

	var out []Relation
	if q.mem != nil {
		out = q.mem.Relations(id, queryPred)
		if rewrite {
			for i := range out {
				out[i].Predicate = p
			}
		}
	} else {
		var err error
		out, err = q.sql.Relations(ctx, id, p)
		if err != nil {
			logAbsorbed(q.log, ErrQueryFailed, "Relations", err)
		}
	}
	q.observe("relations", start, len(out))
	return out
}

// RelationsDown returns every relation with id as Subject (e.g. "what does
// id extend/override/inherit from").
func (q *QueryEngine) RelationsDown(ctx context.Context, id SymbolID, p Predicate) []Relation {
	var out []Relation
	for _, rel := range q.Relations(ctx, id, p) {
		if rel.Subject == id {
			out = append(out, rel)
		}
	}
	return out
}

// RelationsUp returns every relation with id as Object (e.g. "what
// extends/overrides/inherits from id").
func (q *QueryEngine) RelationsUp(ctx context.Context, id SymbolID, p Predicate) []Relation {
	var out []Relation
	for _, rel := range q.Relations(ctx, id, p) {
		if rel.Object == id {
			out = append(out, rel)
		}
	}
	return out
}

// CrossSymbols returns every cross-language bridge recorded for pkg,
// optionally filtered to an exact name.
func (q *QueryEngine) CrossSymbols(ctx context.Context, pkg, name string) []CrossSymbol {
	start := time.Now()
	var out []CrossSymbol
	if q.mem != nil {
		out = q.mem.CrossSymbols(pkg, name)
	} else {
		var err error
		out, err = q.sql.CrossSymbols(ctx, pkg, name)
		if err != nil {
			logAbsorbed(q.log, ErrQueryFailed, "CrossSymbols", err)
		}
	}
	q.observe("cross_symbols", start, len(out))
	return out
}

// Completions returns (Symbol, CompletionItem) pairs fuzzy-prefix-matching
// prefix: the label starts with prefix's first character and the rest of
// prefix's characters follow in order, ASCII case-insensitively. An empty
// prefix matches every item. ShardStoreBackend has no precomputed
// completion index beyond what's carried on each Symbol, so this scans
// CompletionItems directly; SqliteBackend answers via its completions table.
func (q *QueryEngine) Completions(ctx context.Context, prefix string) ([]Symbol, []CompletionItem) {
	start := time.Now()
	var syms []Symbol
	var items []CompletionItem
	if q.mem != nil {
		pr := []rune(prefix)
		for _, sym := range q.mem.IterateSymbols("", "", 0) {
			for _, item := range sym.CompletionItems {
				i := 0
				for j, r := range []rune(item.Label) {
					if i < len(pr) && hasPrefixFold(string(r), string(pr[i])) {
						i++
					} else if j == 0 {
						break
					}
				}
				if i == len(pr) {
					syms = append(syms, sym)
					items = append(items, item)
				}
			}
		}
	} else {
		var err error
		syms, items, err = q.sql.Completions(ctx, prefix)
		if err != nil {
			logAbsorbed(q.log, ErrQueryFailed, "Completions", err)
		}
	}
	q.observe("completions", start, len(items))
	return syms, items
}

// Stats summarizes the QueryEngine's current backend for CLI/diagnostic
// reporting.
type Stats struct {
	Backend  string
	Packages int
}

// Stats reports the number of packages currently loaded (ShardStoreBackend)
// or -1 when the backend is SqliteBackend, which has no equivalent
// in-process package count to report.
func (q *QueryEngine) Stats() Stats {
	if q.mem != nil {
		return Stats{Backend: q.backend.String(), Packages: len(q.mem.Packages())}
	}
	return Stats{Backend: q.backend.String(), Packages: -1}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
