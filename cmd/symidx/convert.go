package main

import (
	"fmt"

	"github.com/jward/symindex"
)

func kindName(k symindex.SymbolKind) string {
	switch k {
	case symindex.KindModule:
		return "module"
	case symindex.KindClass:
		return "class"
	case symindex.KindInterface:
		return "interface"
	case symindex.KindStruct:
		return "struct"
	case symindex.KindEnum:
		return "enum"
	case symindex.KindFunction:
		return "function"
	case symindex.KindMethod:
		return "method"
	case symindex.KindProperty:
		return "property"
	case symindex.KindVariable:
		return "variable"
	case symindex.KindTypeAlias:
		return "type_alias"
	case symindex.KindMacro:
		return "macro"
	case symindex.KindGenericParameter:
		return "generic_parameter"
	case symindex.KindConstructor:
		return "constructor"
	case symindex.KindField:
		return "field"
	default:
		return "unknown"
	}
}

func refKindName(k symindex.RefKind) string {
	switch k {
	case symindex.RefDeclaration:
		return "declaration"
	case symindex.RefDefinition:
		return "definition"
	case symindex.RefCall:
		return "call"
	case symindex.RefSuperCall:
		return "super_call"
	case symindex.RefOverride:
		return "override"
	default:
		return "reference"
	}
}

func predicateName(p symindex.Predicate) string {
	switch p {
	case symindex.BaseOf:
		return "base_of"
	case symindex.Extend:
		return "extend"
	case symindex.Overrides:
		return "overrides"
	case symindex.OverriddenBy:
		return "overridden_by"
	case symindex.InheritsFrom:
		return "inherits_from"
	case symindex.InheritedBy:
		return "inherited_by"
	default:
		return "unknown"
	}
}

// parsePredicate reverses predicateName for the --predicate CLI flag.
func parsePredicate(s string) (symindex.Predicate, error) {
	switch s {
	case "base_of":
		return symindex.BaseOf, nil
	case "extend":
		return symindex.Extend, nil
	case "overrides":
		return symindex.Overrides, nil
	case "overridden_by":
		return symindex.OverriddenBy, nil
	case "inherits_from":
		return symindex.InheritsFrom, nil
	case "inherited_by":
		return symindex.InheritedBy, nil
	default:
		return symindex.PredicateUnknown, fmt.Errorf("unknown predicate %q", s)
	}
}

func locationToCLI(r symindex.Range) CLILocation {
	return CLILocation{
		File:      r.FileURI,
		StartLine: r.Begin.Line,
		StartCol:  r.Begin.Column,
		EndLine:   r.End.Line,
		EndCol:    r.End.Column,
	}
}

func symbolToCLI(s symindex.Symbol) CLISymbol {
	return CLISymbol{
		ID:         uint64(s.ID),
		Name:       s.Name,
		Scope:      s.Scope,
		Kind:       kindName(s.Kind),
		Modifier:   s.Modifier,
		Signature:  s.Signature,
		ReturnType: s.ReturnType,
		Type:       s.Type,
		Location:   locationToCLI(s.Location),
		RefCount:   s.References,
		Rank:       s.Rank,
	}
}

func refEntryToCLI(re symindex.RefEntry) CLIRef {
	return refToCLI(re.Symbol, re.Ref)
}

func refToCLI(symbol symindex.SymbolID, r symindex.Ref) CLIRef {
	return CLIRef{
		Symbol:    uint64(symbol),
		Kind:      refKindName(r.Kind),
		Location:  locationToCLI(r.Location),
		Container: uint64(r.Container),
	}
}

func relationToCLI(r symindex.Relation) CLIRelation {
	return CLIRelation{
		Subject:   uint64(r.Subject),
		Predicate: predicateName(r.Predicate),
		Object:    uint64(r.Object),
	}
}

func crossSymbolToCLI(cs symindex.CrossSymbol) CLICrossSymbol {
	return CLICrossSymbol{
		ID:            uint64(cs.ID),
		Name:          cs.Name,
		Container:     uint64(cs.Container),
		ContainerName: cs.ContainerName,
		Location:      locationToCLI(cs.Location),
	}
}
