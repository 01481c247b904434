package symindex

import (
	"crypto/sha256"
	"fmt"
)

// symbolKey identifies a symbol's identity across a reindex, independent of
// its signature: (Name, Scope, Kind) rather than SymbolID, since a
// changed-but-same-identity symbol gets a fresh SymbolID on each extraction
// pass. Mirrors the teacher's symbolKey{Name, Kind, ParentSymbolID}, with
// Scope standing in for the teacher's parent-symbol pointer.
type symbolKey struct {
	Name  string
	Scope string
	Kind  SymbolKind
}

func keyOf(s Symbol) symbolKey {
	return symbolKey{Name: s.Name, Scope: s.Scope, Kind: s.Kind}
}

// signatureHash hashes the parts of a symbol that matter for "did its
// public shape change", matching the teacher's ComputeSignatureHash in
// spirit (name/kind/visibility/modifiers/members) but over this module's
// flatter Symbol shape.
func signatureHash(s Symbol) string {
	h := sha256.New()
	fmt.Fprintf(h, "name:%s\n", s.Name)
	fmt.Fprintf(h, "kind:%d\n", s.Kind)
	fmt.Fprintf(h, "modifier:%s\n", s.Modifier)
	fmt.Fprintf(h, "signature:%s\n", s.Signature)
	fmt.Fprintf(h, "returnType:%s\n", s.ReturnType)
	fmt.Fprintf(h, "type:%s\n", s.Type)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// diffSignatures compares oldSyms against newSyms by symbolKey and returns
// the SymbolIDs (from oldSyms) of every symbol that was removed or whose
// signature changed — the set whose outside references are now stale
// (SPEC_FULL.md §10's blast-radius computation, generalized from the
// teacher's per-file computeBlastRadius to operate across a whole
// package).
func diffSignatures(oldSyms, newSyms []Symbol) []SymbolID {
	newByKey := make(map[symbolKey]Symbol, len(newSyms))
	for _, s := range newSyms {
		newByKey[keyOf(s)] = s
	}

	var affected []SymbolID
	for _, old := range oldSyms {
		neu, ok := newByKey[keyOf(old)]
		if !ok {
			affected = append(affected, old.ID) // removed
			continue
		}
		if signatureHash(old) != signatureHash(neu) {
			affected = append(affected, old.ID) // changed
		}
	}
	return affected
}
