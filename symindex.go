package symindex

import (
	"context"
	"path/filepath"

	"github.com/jward/symindex/internal/cancel"
	"github.com/jward/symindex/internal/memindex"
	"github.com/jward/symindex/internal/overlay"
	"github.com/jward/symindex/internal/shardstore"
	"github.com/jward/symindex/internal/sqlbackend"
)

// sqliteFileName is the on-disk database file SqliteBackend opens within
// Config.CacheRoot, analogous to ShardStoreBackend's per-package shard
// files sharing the same cache directory.
const sqliteFileName = "symindex.db"

// Index ties every component together: the configured durable backend
// (ShardStore+MemIndex, or SqlBackend), the DirtyOverlay, a QueryEngine
// reading across them, and an UpdateController writing to them. It is the
// one type most callers need (spec.md §2's component table collapsed
// behind a single entry point).
type Index struct {
	cfg     Config
	tok     *cancel.Token
	overlay *overlay.DirtyOverlay

	shards *shardstore.ShardStore
	mem    *memindex.MemIndex
	sql    *sqlbackend.Backend

	query  *QueryEngine
	update *UpdateController
}

// Open builds an Index from cfg. ShardStoreBackend loads every shard
// already on disk into MemIndex so queries are warm immediately; there is
// no equivalent warm-up step for SqliteBackend, whose tables already serve
// queries directly. A backend that fails to open is reported as
// ErrBackendUnavailable, the only error kind spec.md §7 treats as fatal at
// startup.
func Open(cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()
	tok := cancel.New()
	ov := overlay.New()

	idx := &Index{cfg: cfg, tok: tok, overlay: ov}

	switch cfg.Backend {
	case SqliteBackend:
		dbPath := ":memory:"
		if !cfg.OpenInMemory {
			dbPath = filepath.Join(cfg.CacheRoot, sqliteFileName)
		}
		sql, err := sqlbackend.Open(dbPath, cfg.OpenReadOnly, tok, cfg.Logger)
		if err != nil {
			return nil, newIndexError(ErrBackendUnavailable, "Open", err)
		}
		idx.sql = sql
		idx.query = newQueryEngine(ov, nil, sql, cfg.Backend, cfg.Logger)
		idx.update = newUpdateController(nil, nil, sql, cfg.Backend, tok, cfg.Logger)

	default:
		ss, err := shardstore.Open(cfg.CacheRoot)
		if err != nil {
			return nil, newIndexError(ErrBackendUnavailable, "Open", err)
		}
		mem := memindex.New()
		for _, pkg := range ss.Packages() {
			shard, err := ss.Load(pkg)
			if err != nil {
				logAbsorbed(cfg.Logger, ErrMissingShard, "Open", err)
				continue
			}
			mem.Publish(shard)
		}
		idx.shards = ss
		idx.mem = mem
		idx.query = newQueryEngine(ov, mem, nil, cfg.Backend, cfg.Logger)
		idx.update = newUpdateController(ss, mem, nil, cfg.Backend, tok, cfg.Logger)
	}

	return idx, nil
}

// Close releases the Index's backend resources. Cancels the shared token
// first so any in-flight Update call unwinds promptly instead of racing
// the backend's own Close.
func (idx *Index) Close() error {
	idx.tok.Cancel()
	if idx.sql != nil {
		return idx.sql.Close()
	}
	if idx.shards != nil {
		return idx.shards.ReleaseCachedMemory()
	}
	return nil
}

// Query returns the Index's QueryEngine.
func (idx *Index) Query() *QueryEngine {
	return idx.query
}

// Update reindexes pkgName, per UpdateController.Update.
func (idx *Index) Update(ctx context.Context, pkgName, digest string, walk ASTWalker) (UpdateResult, error) {
	return idx.update.Update(ctx, pkgName, digest, walk)
}

// UpdatePackages reindexes a batch of packages in parallel, per
// UpdateController.UpdatePackages.
func (idx *Index) UpdatePackages(ctx context.Context, batch []PackageUpdate) ([]UpdateResult, error) {
	return idx.update.UpdatePackages(ctx, batch)
}

// PutOverlay installs a dirty-buffer entry, shadowing the durable backend
// for entry.URI until EvictOverlay is called. Update does not evict overlay
// entries, even when it republishes the package containing entry.URI.
func (idx *Index) PutOverlay(entry *OverlayEntry) {
	idx.overlay.Put(entry)
}

// EvictOverlay removes uri's dirty-buffer shadow.
func (idx *Index) EvictOverlay(uri string) {
	idx.overlay.Evict(uri)
}

// Cancel signals every in-flight and future Update/Query operation on this
// Index to abort cooperatively (spec.md §5's shutdown predicate).
func (idx *Index) Cancel() {
	idx.tok.Cancel()
}

// ReleaseCachedMemory unmaps ShardStore's memory-mapped shard files,
// freeing page-cache references. A no-op for SqliteBackend, which holds no
// equivalent mapped memory.
func (idx *Index) ReleaseCachedMemory() error {
	if idx.shards == nil {
		return nil
	}
	return idx.shards.ReleaseCachedMemory()
}
