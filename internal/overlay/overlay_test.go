package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/symindex/internal/model"
)

func TestPutGetEvict(t *testing.T) {
	o := New()
	_, ok := o.Get("file:///a.cj")
	assert.False(t, ok)

	o.Put(&Entry{URI: "file:///a.cj", Symbols: []model.Symbol{{ID: 1, Name: "Foo"}}})
	assert.True(t, o.Has("file:///a.cj"))

	e, ok := o.Get("file:///a.cj")
	require.True(t, ok)
	assert.Equal(t, "Foo", e.Symbols[0].Name)

	o.Evict("file:///a.cj")
	assert.False(t, o.Has("file:///a.cj"))
}

func TestPutReplacesExistingEntry(t *testing.T) {
	o := New()
	o.Put(&Entry{URI: "file:///a.cj", Symbols: []model.Symbol{{ID: 1, Name: "Old"}}})
	o.Put(&Entry{URI: "file:///a.cj", Symbols: []model.Symbol{{ID: 1, Name: "New"}}})

	e, ok := o.Get("file:///a.cj")
	require.True(t, ok)
	assert.Equal(t, "New", e.Symbols[0].Name)
}

func TestLookupByIDScansAllEntries(t *testing.T) {
	o := New()
	o.Put(&Entry{URI: "file:///a.cj", Symbols: []model.Symbol{{ID: 1, Name: "A"}}})
	o.Put(&Entry{URI: "file:///b.cj", Symbols: []model.Symbol{{ID: 2, Name: "B"}}})

	sym, ok := o.LookupByID(2)
	require.True(t, ok)
	assert.Equal(t, "B", sym.Name)

	_, ok = o.LookupByID(999)
	assert.False(t, ok)
}

func TestURIs(t *testing.T) {
	o := New()
	o.Put(&Entry{URI: "file:///a.cj"})
	o.Put(&Entry{URI: "file:///b.cj"})
	assert.ElementsMatch(t, []string{"file:///a.cj", "file:///b.cj"}, o.URIs())
}
