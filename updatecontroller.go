package symindex

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jward/symindex/internal/cancel"
	"github.com/jward/symindex/internal/memindex"
	"github.com/jward/symindex/internal/metrics"
	"github.com/jward/symindex/internal/shardstore"
	"github.com/jward/symindex/internal/sqlbackend"
)

// UpdateController owns the end-to-end "reindex one package" sequence
// (spec.md §4.7): staleness check, per-package lock, drain the AST
// callback, serialize and verify, persist, publish, release. Per-package
// locking is a golang.org/x/sync/singleflight.Group keyed by package name
// rather than the source's single global writer mutex, so unrelated
// packages update fully in parallel (SPEC_FULL.md §4.7, §9 Open Question
// 3) — concurrent callers updating the *same* package collapse into one
// in-flight update and all observe its result.
type UpdateController struct {
	shards  *shardstore.ShardStore // nil when backend is SqliteBackend
	mem     *memindex.MemIndex     // nil when backend is SqliteBackend
	sql     *sqlbackend.Backend    // nil when backend is ShardStoreBackend
	backend Backend
	tok     *cancel.Token
	log     *zap.Logger

	sf singleflight.Group

	// sqlDigests tracks the last-seen digest per package for SqliteBackend,
	// which (unlike ShardStore) has no on-disk record of "the digest this
	// package's rows were built from" to check IsStale against.
	sqlDigestsMu sync.Mutex
	sqlDigests   map[string]string
}

func newUpdateController(shards *shardstore.ShardStore, mem *memindex.MemIndex, sql *sqlbackend.Backend, backend Backend, tok *cancel.Token, log *zap.Logger) *UpdateController {
	return &UpdateController{
		shards:     shards,
		mem:        mem,
		sql:        sql,
		backend:    backend,
		tok:        tok,
		log:        log,
		sqlDigests: make(map[string]string),
	}
}

// UpdateResult reports what an Update call did, including the blast radius
// of packages that may need re-resolution because one of their outside
// references now targets a changed or removed symbol (SPEC_FULL.md §10).
type UpdateResult struct {
	Updated      bool
	AffectedPkgs []string

	// RequestID correlates this call's log lines (and those of any future
	// caller logging alongside it) across the 7-step update sequence —
	// useful once UpdatePackages is fanning several of these out
	// concurrently and their log lines interleave.
	RequestID string
}

func (u *UpdateController) isStale(pkgName, digest string) bool {
	if u.shards != nil {
		return u.shards.IsStale(pkgName, digest)
	}
	u.sqlDigestsMu.Lock()
	defer u.sqlDigestsMu.Unlock()
	have, ok := u.sqlDigests[pkgName]
	return !ok || have != digest
}

func (u *UpdateController) recordDigest(pkgName, digest string) {
	if u.shards != nil {
		return
	}
	u.sqlDigestsMu.Lock()
	u.sqlDigests[pkgName] = digest
	u.sqlDigestsMu.Unlock()
}

// Update reindexes pkgName if digest differs from what's currently stored,
// draining walk into a fresh ShardBuilder and swapping the result in.
// Returns early with Updated=false if the package is already up to date.
func (u *UpdateController) Update(ctx context.Context, pkgName, digest string, walk ASTWalker) (UpdateResult, error) {
	v, err, _ := u.sf.Do(pkgName, func() (any, error) {
		return u.doUpdate(ctx, pkgName, digest, walk)
	})
	if err != nil {
		return UpdateResult{}, err
	}
	return v.(UpdateResult), nil
}

func (u *UpdateController) doUpdate(ctx context.Context, pkgName, digest string, walk ASTWalker) (UpdateResult, error) {
	start := time.Now()
	defer func() {
		metrics.UpdateLatencySeconds.WithLabelValues(pkgName).Observe(time.Since(start).Seconds())
	}()

	// requestID correlates this call's log lines across the 7-step
	// sequence — most useful once UpdatePackages has several of these
	// running concurrently and their log lines interleave.
	requestID := uuid.NewString()
	log := u.log.With(zap.String("request_id", requestID), zap.String("package", pkgName))

	// Step 1: staleness check.
	if !u.isStale(pkgName, digest) {
		return UpdateResult{Updated: false, RequestID: requestID}, nil
	}
	log.Debug("symindex: update started", zap.String("digest", digest))

	// Capture the "before" symbol snapshot for blast-radius diffing. A
	// missing/unreadable old shard means first-run: no blast radius beyond
	// the package itself.
	var oldSymbols []Symbol
	if u.shards != nil {
		if old, err := u.shards.Load(pkgName); err == nil {
			oldSymbols = old.Symbols
		}
	} else if u.sql != nil {
		oldSymbols, _ = u.sql.SymbolsByPackage(ctx, pkgName)
	}

	// Step 2 (lock) is the singleflight.Do call in Update; step 3: drain
	// the callback into a builder.
	builder := NewShardBuilder(pkgName)
	if err := walk(u.tok, builder); err != nil {
		logAbsorbed(log, ErrUpdateFailed, "Update", err)
		return UpdateResult{RequestID: requestID}, newIndexError(ErrUpdateFailed, "Update", err)
	}
	if u.tok.Cancelled() {
		return UpdateResult{RequestID: requestID}, newIndexError(ErrUpdateFailed, "Update", fmt.Errorf("cancelled"))
	}
	shard := builder.Build(digest)

	// Step 4: serialize and verify before attempting to persist, so a
	// buffer that would fail MalformedBuffer verification never reaches
	// disk or the database.
	if err := verifyShardBytes(shard); err != nil {
		return UpdateResult{RequestID: requestID}, newIndexError(ErrMalformedBuffer, "Update", err)
	}

	// Steps 5-6: persist, then (ShardStoreBackend only) publish into
	// MemIndex. SqliteBackend's ReplacePackage both persists and becomes
	// the query-visible state in the same transaction — there is no
	// separate in-process slab to swap.
	if u.shards != nil {
		if err := u.shards.Store(shard); err != nil {
			return UpdateResult{RequestID: requestID}, newIndexError(ErrUpdateFailed, "Update", err)
		}
		u.mem.Publish(shard)
	} else {
		if err := u.sql.ReplacePackage(ctx, shard); err != nil {
			return UpdateResult{RequestID: requestID}, newIndexError(ErrUpdateFailed, "Update", err)
		}
	}
	u.recordDigest(pkgName, digest)

	// Blast radius: which other packages reference a symbol that was
	// removed or changed shape.
	affected := diffSignatures(oldSymbols, shard.Symbols)
	var pkgs []string
	if len(affected) > 0 {
		if u.mem != nil {
			pkgs = u.mem.PackagesReferencingSymbols(affected, pkgName)
		} else {
			pkgs, _ = u.sql.PackagesReferencingSymbols(ctx, affected, pkgName)
		}
	}
	log.Debug("symindex: update finished", zap.Int("affected_packages", len(pkgs)))

	// Step 7 (release) happens implicitly when doUpdate returns and
	// singleflight.Do unblocks waiters.
	return UpdateResult{Updated: true, AffectedPkgs: pkgs, RequestID: requestID}, nil
}

// UpdatePackages runs Update for every (pkgName, digest, walker) triple in
// batch concurrently, bounded by runtime.NumCPU() (SPEC_FULL.md §4.7,
// grounded on the teacher's engine_parallel.go worker-pool sizing), via a
// golang.org/x/sync/errgroup.Group. Independent packages proceed fully in
// parallel; same-package collisions within one batch still collapse via
// the per-package singleflight in Update. The first error aborts remaining
// not-yet-started work but lets in-flight updates finish.
type PackageUpdate struct {
	PkgName string
	Digest  string
	Walk    ASTWalker
}

func (u *UpdateController) UpdatePackages(ctx context.Context, batch []PackageUpdate) ([]UpdateResult, error) {
	results := make([]UpdateResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, pu := range batch {
		i, pu := i, pu
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := u.Update(gctx, pu.PkgName, pu.Digest, pu.Walk)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
