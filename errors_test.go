package symindex

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsKindMatchesWrappedIndexError(t *testing.T) {
	base := errors.New("boom")
	wrapped := fmt.Errorf("caller context: %w", newIndexError(ErrUpdateFailed, "Update", base))

	assert.True(t, IsKind(wrapped, ErrUpdateFailed))
	assert.False(t, IsKind(wrapped, ErrQueryFailed))
	assert.False(t, IsKind(base, ErrUpdateFailed), "a plain error is never any kind")
}

func TestIndexErrorUnwrapReachesCause(t *testing.T) {
	base := errors.New("boom")
	ie := newIndexError(ErrMalformedBuffer, "Update", base)
	assert.ErrorIs(t, ie, base)
}

func TestLogAbsorbedSkipsNilError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)
	logAbsorbed(log, ErrQueryFailed, "LookupByID", nil)
	assert.Equal(t, 0, logs.Len())
}

func TestLogAbsorbedLogsKindAndOp(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)
	logAbsorbed(log, ErrQueryFailed, "LookupByID", errors.New("boom"))
	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "symindex: absorbed error", entries[0].Message)
}
