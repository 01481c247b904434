package codec

import "github.com/jward/symindex/internal/model"

func encodePosition(w *writer, p model.Position) {
	w.uint32(p.FileID)
	w.uint32(p.Line)
	w.uint32(p.Column)
}

func decodePosition(r *reader) (model.Position, error) {
	var p model.Position
	var err error
	if p.FileID, err = r.uint32(); err != nil {
		return p, err
	}
	if p.Line, err = r.uint32(); err != nil {
		return p, err
	}
	if p.Column, err = r.uint32(); err != nil {
		return p, err
	}
	return p, nil
}

func encodeRange(w *writer, rg model.Range) {
	encodePosition(w, rg.Begin)
	encodePosition(w, rg.End)
	w.string(rg.FileURI)
}

func decodeRange(r *reader) (model.Range, error) {
	var rg model.Range
	var err error
	if rg.Begin, err = decodePosition(r); err != nil {
		return rg, err
	}
	if rg.End, err = decodePosition(r); err != nil {
		return rg, err
	}
	if rg.FileURI, err = r.string(); err != nil {
		return rg, err
	}
	return rg, nil
}

func encodeComments(w *writer, cs []model.Comment) {
	w.uint32(uint32(len(cs)))
	for _, c := range cs {
		w.uint8(uint8(c.Style))
		w.uint8(uint8(c.Kind))
		w.string(c.Text)
	}
}

func decodeComments(r *reader) ([]model.Comment, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]model.Comment, n)
	for i := range out {
		style, err := r.uint8()
		if err != nil {
			return nil, err
		}
		kind, err := r.uint8()
		if err != nil {
			return nil, err
		}
		text, err := r.string()
		if err != nil {
			return nil, err
		}
		out[i] = model.Comment{Style: model.CommentStyle(style), Kind: model.CommentKind(kind), Text: text}
	}
	return out, nil
}

func encodeCompletionItems(w *writer, items []model.CompletionItem) {
	w.uint32(uint32(len(items)))
	for _, it := range items {
		w.string(it.Label)
		w.string(it.InsertText)
	}
}

func decodeCompletionItems(r *reader) ([]model.CompletionItem, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]model.CompletionItem, n)
	for i := range out {
		label, err := r.string()
		if err != nil {
			return nil, err
		}
		insert, err := r.string()
		if err != nil {
			return nil, err
		}
		out[i] = model.CompletionItem{Label: label, InsertText: insert}
	}
	return out, nil
}

func encodeSymbol(w *writer, s *model.Symbol) {
	w.uint64(uint64(s.ID))
	w.string(s.Name)
	w.string(s.Scope)
	w.uint8(uint8(s.Kind))
	w.uint32(s.SubKind)
	w.uint32(s.Language)
	w.uint32(s.Properties)
	encodeRange(w, s.Location)
	encodeRange(w, s.Declaration)
	w.string(s.Signature)
	w.string(s.ReturnType)
	w.string(s.Type)
	w.string(s.Documentation)
	w.string(s.TemplateSpecializationArgs)
	w.string(s.CompletionSnippetSuffix)
	w.string(s.Modifier)
	w.string(s.Syscap)
	w.uint32(uint32(s.Flags))
	w.string(s.CurModule)
	w.string(s.PkgModifier)
	encodeRange(w, s.CurMacroCall)
	encodeComments(w, s.CommentsLeading)
	encodeComments(w, s.CommentsInner)
	encodeComments(w, s.CommentsTrailing)
	encodeCompletionItems(w, s.CompletionItems)
}

func decodeSymbol(r *reader, s *model.Symbol) error {
	id, err := r.uint64()
	if err != nil {
		return err
	}
	s.ID = model.SymbolID(id)
	if s.Name, err = r.string(); err != nil {
		return err
	}
	if s.Scope, err = r.string(); err != nil {
		return err
	}
	kind, err := r.uint8()
	if err != nil {
		return err
	}
	s.Kind = model.SymbolKind(kind)
	if s.SubKind, err = r.uint32(); err != nil {
		return err
	}
	if s.Language, err = r.uint32(); err != nil {
		return err
	}
	if s.Properties, err = r.uint32(); err != nil {
		return err
	}
	if s.Location, err = decodeRange(r); err != nil {
		return err
	}
	if s.Declaration, err = decodeRange(r); err != nil {
		return err
	}
	if s.Signature, err = r.string(); err != nil {
		return err
	}
	if s.ReturnType, err = r.string(); err != nil {
		return err
	}
	if s.Type, err = r.string(); err != nil {
		return err
	}
	if s.Documentation, err = r.string(); err != nil {
		return err
	}
	if s.TemplateSpecializationArgs, err = r.string(); err != nil {
		return err
	}
	if s.CompletionSnippetSuffix, err = r.string(); err != nil {
		return err
	}
	if s.Modifier, err = r.string(); err != nil {
		return err
	}
	if s.Syscap, err = r.string(); err != nil {
		return err
	}
	flags, err := r.uint32()
	if err != nil {
		return err
	}
	s.Flags = model.SymbolFlag(flags)
	if s.CurModule, err = r.string(); err != nil {
		return err
	}
	if s.PkgModifier, err = r.string(); err != nil {
		return err
	}
	if s.CurMacroCall, err = decodeRange(r); err != nil {
		return err
	}
	if s.CommentsLeading, err = decodeComments(r); err != nil {
		return err
	}
	if s.CommentsInner, err = decodeComments(r); err != nil {
		return err
	}
	if s.CommentsTrailing, err = decodeComments(r); err != nil {
		return err
	}
	if s.CompletionItems, err = decodeCompletionItems(r); err != nil {
		return err
	}
	return nil
}

func encodeRefEntry(w *writer, re *model.RefEntry) {
	w.uint64(uint64(re.Symbol))
	w.uint64(uint64(re.Ref.Symbol))
	encodeRange(w, re.Ref.Location)
	w.uint8(uint8(re.Ref.Kind))
	w.uint64(uint64(re.Ref.Container))
	w.bool(re.Ref.IsCjoRef)
	w.bool(re.Ref.IsSuper)
}

func decodeRefEntry(r *reader, re *model.RefEntry) error {
	sym, err := r.uint64()
	if err != nil {
		return err
	}
	re.Symbol = model.SymbolID(sym)

	refSym, err := r.uint64()
	if err != nil {
		return err
	}
	re.Ref.Symbol = model.SymbolID(refSym)

	if re.Ref.Location, err = decodeRange(r); err != nil {
		return err
	}
	kind, err := r.uint8()
	if err != nil {
		return err
	}
	re.Ref.Kind = model.RefKind(kind)

	container, err := r.uint64()
	if err != nil {
		return err
	}
	re.Ref.Container = model.SymbolID(container)

	if re.Ref.IsCjoRef, err = r.bool(); err != nil {
		return err
	}
	if re.Ref.IsSuper, err = r.bool(); err != nil {
		return err
	}
	return nil
}

func encodeRelation(w *writer, rel *model.Relation) {
	w.uint64(uint64(rel.Subject))
	w.uint8(uint8(rel.Predicate))
	w.uint64(uint64(rel.Object))
}

func decodeRelation(r *reader, rel *model.Relation) error {
	subj, err := r.uint64()
	if err != nil {
		return err
	}
	rel.Subject = model.SymbolID(subj)

	pred, err := r.uint8()
	if err != nil {
		return err
	}
	rel.Predicate = model.Predicate(pred)

	obj, err := r.uint64()
	if err != nil {
		return err
	}
	rel.Object = model.SymbolID(obj)
	return nil
}

func encodeExtendEntry(w *writer, ex *model.ExtendEntry) {
	w.uint64(uint64(ex.Symbol))
	w.uint64(uint64(ex.Item.Symbol))
	w.uint64(uint64(ex.Item.ExtendedType))
	w.string(ex.Item.Modifier)
	w.string(ex.Item.InterfaceName)
}

func decodeExtendEntry(r *reader, ex *model.ExtendEntry) error {
	sym, err := r.uint64()
	if err != nil {
		return err
	}
	ex.Symbol = model.SymbolID(sym)

	itemSym, err := r.uint64()
	if err != nil {
		return err
	}
	ex.Item.Symbol = model.SymbolID(itemSym)

	extended, err := r.uint64()
	if err != nil {
		return err
	}
	ex.Item.ExtendedType = model.SymbolID(extended)

	if ex.Item.Modifier, err = r.string(); err != nil {
		return err
	}
	if ex.Item.InterfaceName, err = r.string(); err != nil {
		return err
	}
	return nil
}

func encodeCrossSymbol(w *writer, cs *model.CrossSymbol) {
	w.uint64(uint64(cs.ID))
	w.string(cs.Name)
	w.uint8(uint8(cs.CrossType))
	w.uint64(uint64(cs.Container))
	w.string(cs.ContainerName)
	encodeRange(w, cs.Location)
	encodeRange(w, cs.Declaration)
}

func decodeCrossSymbol(r *reader, cs *model.CrossSymbol) error {
	id, err := r.uint64()
	if err != nil {
		return err
	}
	cs.ID = model.SymbolID(id)
	if cs.Name, err = r.string(); err != nil {
		return err
	}
	ct, err := r.uint8()
	if err != nil {
		return err
	}
	cs.CrossType = model.CrossType(ct)

	container, err := r.uint64()
	if err != nil {
		return err
	}
	cs.Container = model.SymbolID(container)

	if cs.ContainerName, err = r.string(); err != nil {
		return err
	}
	if cs.Location, err = decodeRange(r); err != nil {
		return err
	}
	if cs.Declaration, err = decodeRange(r); err != nil {
		return err
	}
	return nil
}
