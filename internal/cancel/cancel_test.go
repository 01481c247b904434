package cancel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenStartsUncancelled(t *testing.T) {
	tok := New()
	assert.False(t, tok.Cancelled())
	select {
	case <-tok.Done():
		t.Fatal("Done channel should not be closed yet")
	default:
	}
}

func TestCancelClosesDone(t *testing.T) {
	tok := New()
	tok.Cancel()
	assert.True(t, tok.Cancelled())
	<-tok.Done() // must not block
}

func TestCancelIsIdempotent(t *testing.T) {
	tok := New()
	tok.Cancel()
	assert.NotPanics(t, func() { tok.Cancel() })
	assert.True(t, tok.Cancelled())
}
