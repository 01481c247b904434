// Package sqlbackend implements the optional SQL-backed alternative to
// ShardStore+MemIndex: the same logical schema (spec.md §4.5) materialized
// in SQLite, selected per-workspace instead of shard files when a
// workspace is configured for it.
package sqlbackend

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jward/symindex/internal/cancel"
)

//go:embed schema.sql
var schemaDDL string

// schemaVersion is bumped whenever schema.sql changes shape. It is stored
// in SQLite's user_version pragma and checked on every open (spec.md
// §4.5's "schema-version pragma guards migrations").
const schemaVersion = 1

// applicationID is stored in SQLite's application_id pragma, distinguishing
// a symindex database file from an arbitrary SQLite file.
const applicationID = 0x53594d58 // "SYMX"

// configureOnce ensures SQLite's serialized-threading mode is set at most
// once per process lifetime (spec.md §4.5, "process-wide configure-once
// flag"), mirroring the original implementation's std::once_flag-guarded
// ConfigureSQLite.
var configureOnce sync.Once

func configureSQLite() {
	configureOnce.Do(func() {
		// go-sqlite3 always runs in SQLite's serialized threading mode;
		// there is no separate opt-in call to make here, unlike the
		// original implementation's explicit setSerializedMode(). The
		// once-guard still exists to give any future process-wide SQLite
		// configuration (e.g. a custom VFS) a single, race-free place to
		// live.
	})
}

// Backend is the SQL-backed implementation of the persistent symbol index.
type Backend struct {
	db  *sql.DB
	tok *cancel.Token
	log *zap.Logger

	writeMu sync.Mutex

	stmtMu sync.Mutex
	stmts  map[string][]*cachedStmt
}

type cachedStmt struct {
	stmt *sql.Stmt
	busy bool
}

// progressHandlerOpsInterval is how many SQLite VM instructions elapse
// between calls to the progress handler registered below — the Go
// analogue of the original implementation's periodic shutdown-flag poll.
const progressHandlerOpsInterval = 1000

// Open opens (creating if necessary, unless readOnly is set) a SQLite
// database at path, migrates its schema, and prepares busy/progress
// handling keyed off tok. readOnly maps to a URI-open mode of `ro` instead
// of the default `rwc` (spec.md §6's "openReadOnly... map to URI-open
// flags"); a read-only open skips migration entirely, since a read-only
// handle can neither create the schema nor set its pragmas.
func Open(path string, readOnly bool, tok *cancel.Token, log *zap.Logger) (*Backend, error) {
	configureSQLite()

	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON"
	if readOnly {
		dsn += "&mode=ro"
	} else {
		dsn += "&mode=rwc"
	}

	// A per-Open driver instance (rather than a single process-wide
	// sql.Register) so the progress handler closes over this Backend's own
	// cancellation token instead of a shared global.
	driver := &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			conn.RegisterProgressHandler(progressHandlerOpsInterval, func() int {
				if tok.Cancelled() {
					return 1 // non-zero aborts the running statement
				}
				return 0
			})
			return nil
		},
	}
	connector, err := driver.OpenConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: open connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlbackend: ping: %w", err)
	}

	b := &Backend{db: db, tok: tok, log: log, stmts: make(map[string][]*cachedStmt)}
	if readOnly {
		return b, nil
	}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// Close closes the underlying database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

// migrate reads application_id/user_version and creates or upgrades the
// schema accordingly (spec.md §4.5): absent pragmas mean a fresh database
// (run the create script), a version mismatch with no upgrade path means
// drop-and-recreate inside a transaction.
func (b *Backend) migrate() error {
	var appID, userVersion int
	if err := b.db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		return fmt.Errorf("sqlbackend: read application_id: %w", err)
	}
	if err := b.db.QueryRow("PRAGMA user_version").Scan(&userVersion); err != nil {
		return fmt.Errorf("sqlbackend: read user_version: %w", err)
	}

	switch {
	case appID == 0 && userVersion == 0:
		return b.createSchema()
	case appID == applicationID && userVersion == schemaVersion:
		return nil
	default:
		b.log.Warn("sqlbackend: schema mismatch, recreating database",
			zap.Int("application_id", appID), zap.Int("user_version", userVersion))
		return b.recreateSchema()
	}
}

func (b *Backend) createSchema() error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlbackend: begin schema create: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("sqlbackend: create schema: %w", err)
	}
	if err := setPragmas(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *Backend) recreateSchema() error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlbackend: begin schema recreate: %w", err)
	}
	defer tx.Rollback()
	for _, table := range []string{
		"files", "symbols", "comments", "completions", "refs", "relations", "extends", "cross_symbols",
	} {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("sqlbackend: drop %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("sqlbackend: recreate schema: %w", err)
	}
	if err := setPragmas(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func setPragmas(tx *sql.Tx) error {
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA application_id = %d", applicationID)); err != nil {
		return fmt.Errorf("sqlbackend: set application_id: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("sqlbackend: set user_version: %w", err)
	}
	return nil
}

// Update runs fn inside a BEGIN/COMMIT transaction, serialized against
// every other Update call by a single writer mutex (spec.md §4.5: "the
// same logical writer" the shared schema requires, unlike the per-package
// singleflight locking UpdateController uses for shard updates). fn's
// error triggers ROLLBACK; a COMMIT failure also rolls back.
func (b *Backend) Update(ctx context.Context, fn func(tx *sql.Tx) error) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var tx *sql.Tx
	if err := b.busyRetry(func() error {
		var beginErr error
		tx, beginErr = b.db.BeginTx(ctx, nil)
		return beginErr
	}); err != nil {
		return fmt.Errorf("sqlbackend: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := b.busyRetry(tx.Commit); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlbackend: commit: %w", err)
	}
	return nil
}

// prepare returns a non-busy cached *sql.Stmt for query, allocating a new
// one if every cached statement for that text is currently checked out
// (spec.md §4.5's "reuse a non-busy prepared statement or allocate a fresh
// one" contract).
func (b *Backend) prepare(query string) (*cachedStmt, error) {
	b.stmtMu.Lock()
	defer b.stmtMu.Unlock()

	for _, cs := range b.stmts[query] {
		if !cs.busy {
			cs.busy = true
			return cs, nil
		}
	}
	stmt, err := b.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: prepare: %w", err)
	}
	cs := &cachedStmt{stmt: stmt, busy: true}
	b.stmts[query] = append(b.stmts[query], cs)
	return cs, nil
}

// release returns cs to the pool for reuse by a future prepare call.
func (b *Backend) release(cs *cachedStmt) {
	b.stmtMu.Lock()
	cs.busy = false
	b.stmtMu.Unlock()
}

// withStmt prepares (or reuses) query, runs fn against it, and releases it
// back to the pool regardless of fn's outcome.
func (b *Backend) withStmt(query string, fn func(*sql.Stmt) error) error {
	cs, err := b.prepare(query)
	if err != nil {
		return err
	}
	defer b.release(cs)
	return b.busyRetry(func() error { return fn(cs.stmt) })
}

// busyRetry runs op, retrying with a bounded exponential backoff while op
// reports SQLITE_BUSY, and aborting early if tok is cancelled — the Go
// analogue of the original implementation's 100ms-sleep busy handler
// combined with its shutdown-flag check, expressed with
// github.com/cenkalti/backoff/v4 instead of a hand-rolled sleep loop.
func (b *Backend) busyRetry(op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0 // bounded instead by cancellation, not wall time

	return backoff.Retry(func() error {
		if b.tok.Cancelled() {
			return backoff.Permanent(fmt.Errorf("sqlbackend: cancelled while retrying"))
		}
		err := op()
		if err == nil {
			return nil
		}
		if !isBusyErr(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

func isBusyErr(err error) bool {
	// go-sqlite3 surfaces SQLITE_BUSY/SQLITE_LOCKED as a driver error whose
	// message contains one of these substrings; inspected by string match
	// rather than a type assertion on the driver's error type so this
	// still works if the driver wraps the error (e.g. through database/sql).
	msg := err.Error()
	return contains(msg, "database is locked") || contains(msg, "SQLITE_BUSY") || contains(msg, "SQLITE_LOCKED")
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
