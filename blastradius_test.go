package symindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffSignaturesDetectsRemovedAndChanged(t *testing.T) {
	old := []Symbol{
		{ID: 1, Name: "Widget", Scope: "pkg", Kind: KindClass, Signature: "class Widget"},
		{ID: 2, Name: "Gadget", Scope: "pkg", Kind: KindClass, Signature: "class Gadget"},
		{ID: 3, Name: "Stable", Scope: "pkg", Kind: KindClass, Signature: "class Stable"},
	}
	neu := []Symbol{
		// Widget: signature changed.
		{ID: 1, Name: "Widget", Scope: "pkg", Kind: KindClass, Signature: "class Widget(int)"},
		// Gadget removed entirely.
		// Stable: unchanged.
		{ID: 3, Name: "Stable", Scope: "pkg", Kind: KindClass, Signature: "class Stable"},
	}

	affected := diffSignatures(old, neu)
	assert.ElementsMatch(t, []SymbolID{1, 2}, affected)
}

func TestDiffSignaturesNoChangeYieldsNoAffected(t *testing.T) {
	syms := []Symbol{{ID: 1, Name: "Widget", Scope: "pkg", Kind: KindClass, Signature: "class Widget"}}
	affected := diffSignatures(syms, syms)
	assert.Empty(t, affected)
}

func TestSignatureHashIgnoresIrrelevantFields(t *testing.T) {
	a := Symbol{ID: 1, Name: "Widget", Kind: KindClass, Signature: "sig", Location: Range{FileURI: "a.go"}}
	b := Symbol{ID: 2, Name: "Widget", Kind: KindClass, Signature: "sig", Location: Range{FileURI: "b.go"}}
	assert.Equal(t, signatureHash(a), signatureHash(b), "ID and Location must not affect the signature hash")
}

func TestSignatureHashDetectsModifierChange(t *testing.T) {
	a := Symbol{Name: "Widget", Kind: KindClass, Modifier: "public"}
	b := Symbol{Name: "Widget", Kind: KindClass, Modifier: "private"}
	assert.NotEqual(t, signatureHash(a), signatureHash(b))
}
