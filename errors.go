package symindex

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrorKind classifies a failure at a component boundary, matching the
// taxonomy spec.md §7 lays out.
type ErrorKind uint8

const (
	// ErrStale means the caller asked for a package whose on-disk shard is
	// older than what the caller's hash code indicates it should see.
	ErrStale ErrorKind = iota
	// ErrMissingShard means no shard (on disk or in MemIndex) exists for a
	// requested package.
	ErrMissingShard
	// ErrMalformedBuffer means a shard file failed codec.Verify.
	ErrMalformedBuffer
	// ErrBackendUnavailable means the configured backend (SqlBackend or
	// ShardStore) could not be opened or has been closed.
	ErrBackendUnavailable
	// ErrUpdateFailed means UpdateController.Update could not complete.
	ErrUpdateFailed
	// ErrQueryFailed means a QueryEngine operation could not complete.
	ErrQueryFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrStale:
		return "stale"
	case ErrMissingShard:
		return "missing_shard"
	case ErrMalformedBuffer:
		return "malformed_buffer"
	case ErrBackendUnavailable:
		return "backend_unavailable"
	case ErrUpdateFailed:
		return "update_failed"
	case ErrQueryFailed:
		return "query_failed"
	default:
		return "unknown"
	}
}

// IndexError wraps an underlying error with the ErrorKind that classifies
// it, so callers can errors.As into it instead of matching strings.
type IndexError struct {
	Kind ErrorKind
	Op   string // the operation that failed, e.g. "LookupByID", "ReplacePackage"
	Err  error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("symindex: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

func newIndexError(kind ErrorKind, op string, err error) *IndexError {
	return &IndexError{Kind: kind, Op: op, Err: err}
}

// logAbsorbed logs an error at the point it is absorbed (i.e. not
// propagated further, typically because the caller-facing contract returns
// a zero value plus "not found" rather than an error). Every such site
// logs the IndexError's kind, per spec.md §7.
func logAbsorbed(log *zap.Logger, kind ErrorKind, op string, err error) {
	if err == nil {
		return
	}
	log.Warn("symindex: absorbed error",
		zap.String("kind", kind.String()),
		zap.String("op", op),
		zap.Error(err),
	)
}

// IsKind reports whether err is an *IndexError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Kind == kind
	}
	return false
}
