package sqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jward/symindex/internal/codec"
	"github.com/jward/symindex/internal/model"
)

// symbolCols lists the symbols-table columns in the order scanSymbolRow
// expects, shared by every query that returns full Symbol rows. Kept in
// sync with insertSymbols' column list in bulkinsert.go.
const symbolCols = `id, package, name, scope, kind, sub_kind, language, properties,
	loc_file_uri, loc_begin_line, loc_begin_col, loc_end_line, loc_end_col,
	decl_file_uri, decl_begin_line, decl_begin_col, decl_end_line, decl_end_col,
	signature, return_type, type, documentation, template_spec_args, completion_suffix,
	modifier, syscap, flags, cur_module`

// scanSymbolRow scans one symbols row, in symbolCols order, into a Symbol.
// The package column is consumed but not stored on Symbol — package
// membership lives at the Shard level, not the individual symbol.
func scanSymbolRow(rows *sql.Rows) (model.Symbol, error) {
	var s model.Symbol
	var idBytes []byte
	var pkg string
	var kind, subKind, language, properties, flags int
	var locBL, locBC, locEL, locEC, declBL, declBC, declEL, declEC int
	if err := rows.Scan(
		&idBytes, &pkg, &s.Name, &s.Scope, &kind, &subKind, &language, &properties,
		&s.Location.FileURI, &locBL, &locBC, &locEL, &locEC,
		&s.Declaration.FileURI, &declBL, &declBC, &declEL, &declEC,
		&s.Signature, &s.ReturnType, &s.Type, &s.Documentation, &s.TemplateSpecializationArgs, &s.CompletionSnippetSuffix,
		&s.Modifier, &s.Syscap, &flags, &s.CurModule,
	); err != nil {
		return s, err
	}
	var arr [8]byte
	copy(arr[:], idBytes)
	s.ID = codec.IDFromBytes(arr)
	s.Kind = model.SymbolKind(kind)
	s.SubKind = uint32(subKind)
	s.Language = uint32(language)
	s.Properties = uint32(properties)
	s.Flags = model.SymbolFlag(flags)
	s.Location.Begin = model.Position{Line: uint32(locBL), Column: uint32(locBC)}
	s.Location.End = model.Position{Line: uint32(locEL), Column: uint32(locEC)}
	s.Declaration.Begin = model.Position{Line: uint32(declBL), Column: uint32(declBC)}
	s.Declaration.End = model.Position{Line: uint32(declEL), Column: uint32(declEC)}
	return s, nil
}

// LookupByID returns the symbol with the given ID, if any.
func (b *Backend) LookupByID(ctx context.Context, id model.SymbolID) (model.Symbol, bool, error) {
	idBytes := codec.IDToBytes(id)
	var sym model.Symbol
	var found bool
	err := b.withStmt(`SELECT `+symbolCols+` FROM symbols WHERE id = ?`, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, idBytes[:])
		if err != nil {
			return err
		}
		defer rows.Close()
		if rows.Next() {
			sym, err = scanSymbolRow(rows)
			if err != nil {
				return err
			}
			found = true
		}
		return rows.Err()
	})
	if err != nil {
		b.log.Warn("sqlbackend: lookup by id failed", zap.Error(err))
		return model.Symbol{}, false, nil
	}
	return sym, found, nil
}

// LookupByName returns every symbol with an exact name match.
func (b *Backend) LookupByName(ctx context.Context, name string) ([]model.Symbol, error) {
	var out []model.Symbol
	err := b.withStmt(`SELECT `+symbolCols+` FROM symbols WHERE name = ?`, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, name)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sym, err := scanSymbolRow(rows)
			if err != nil {
				return err
			}
			out = append(out, sym)
		}
		return rows.Err()
	})
	if err != nil {
		b.log.Warn("sqlbackend: lookup by name failed", zap.Error(err))
		return nil, nil
	}
	return out, nil
}

// scanSymbolRowWithRefCount scans a symbolCols row plus one trailing
// COUNT(*)-over-refs column, for queries (Matching) that join the
// reference count in rather than leaving Symbol.References at its zero
// value.
func scanSymbolRowWithRefCount(rows *sql.Rows) (model.Symbol, int, error) {
	var s model.Symbol
	var idBytes []byte
	var pkg string
	var kind, subKind, language, properties, flags, refCount int
	var locBL, locBC, locEL, locEC, declBL, declBC, declEL, declEC int
	if err := rows.Scan(
		&idBytes, &pkg, &s.Name, &s.Scope, &kind, &subKind, &language, &properties,
		&s.Location.FileURI, &locBL, &locBC, &locEL, &locEC,
		&s.Declaration.FileURI, &declBL, &declBC, &declEL, &declEC,
		&s.Signature, &s.ReturnType, &s.Type, &s.Documentation, &s.TemplateSpecializationArgs, &s.CompletionSnippetSuffix,
		&s.Modifier, &s.Syscap, &flags, &s.CurModule, &refCount,
	); err != nil {
		return s, 0, err
	}
	var arr [8]byte
	copy(arr[:], idBytes)
	s.ID = codec.IDFromBytes(arr)
	s.Kind = model.SymbolKind(kind)
	s.SubKind = uint32(subKind)
	s.Language = uint32(language)
	s.Properties = uint32(properties)
	s.Flags = model.SymbolFlag(flags)
	s.References = refCount
	s.Location.Begin = model.Position{Line: uint32(locBL), Column: uint32(locBC)}
	s.Location.End = model.Position{Line: uint32(locEL), Column: uint32(locEC)}
	s.Declaration.Begin = model.Position{Line: uint32(declBL), Column: uint32(declBC)}
	s.Declaration.End = model.Position{Line: uint32(declEL), Column: uint32(declEC)}
	return s, refCount, nil
}

// Matching returns a candidate set of symbols for a fuzzy/tokenized query,
// optionally restricted to a scope prefix and/or a non-zero flags bitmask,
// with Symbol.References joined in from the refs table (spec.md §4.6).
// Rank, and the final identifier-token match decision, are left to the
// caller (QueryEngine.Matching): this query only pre-filters by a
// leading-wildcard, per-character LIKE expansion of prefix (see
// fuzzyLikePrefix) so every name containing prefix's characters as an
// in-order subsequence survives, including a whole-string prefix match or
// a match found within a single trailing identifier token (e.g. prefix
// "par" against name "XMLParser"). A prefix split into several
// out-of-order identifier tokens (e.g. "bar_foo" against a name tokenizing
// to ["Foo","Bar"]) is a MemIndex-only capability: with no filter to
// pre-filter through, MemIndex's Matching compares every token
// independently, while this SQL pre-filter requires prefix's characters to
// appear in a single left-to-right pass over the name.
func (b *Backend) Matching(ctx context.Context, prefix, scope string, flagsMask model.SymbolFlag) ([]model.Symbol, error) {
	query := `SELECT ` + symbolCols + `, (SELECT COUNT(*) FROM refs r WHERE r.symbol_id = symbols.id) ` +
		`FROM symbols WHERE 1=1`
	var args []any
	if prefix != "" {
		query += ` AND name LIKE ? ESCAPE '\' COLLATE NOCASE`
		args = append(args, "%"+fuzzyLikePrefix(prefix))
	}
	if scope != "" {
		query += ` AND scope LIKE ? ESCAPE '\'`
		args = append(args, scope+"%")
	}
	if flagsMask != 0 {
		query += ` AND (flags & ?) != 0`
		args = append(args, int(flagsMask))
	}

	var out []model.Symbol
	err := b.withStmt(query, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sym, _, err := scanSymbolRowWithRefCount(rows)
			if err != nil {
				return err
			}
			out = append(out, sym)
		}
		return rows.Err()
	})
	if err != nil {
		b.log.Warn("sqlbackend: matching failed", zap.Error(err))
		return nil, nil
	}
	return out, nil
}

// fuzzyLikePrefix expands prefix into a per-UTF8-character `%`-interleaved
// LIKE pattern, matching the original implementation's
// AddPercentAfterEachUTF8Char: every complete UTF-8 code point in prefix is
// followed by a `%` wildcard, so "Wdg" loosely matches "Widget" the way a
// skip-tolerant fuzzy completion expects. An empty prefix becomes a lone
// `%`, which matches everything (spec.md §9 Open Question 2).
func fuzzyLikePrefix(prefix string) string {
	if prefix == "" {
		return "%"
	}
	var sb strings.Builder
	for _, r := range prefix {
		sb.WriteRune(r)
		sb.WriteByte('%')
	}
	return sb.String()
}

// Completions yields (Symbol, CompletionItem) pairs whose completion label
// fuzzy-prefix-matches prefix, case-insensitively. The join means a symbol
// with several matching completion items is returned once per item.
func (b *Backend) Completions(ctx context.Context, prefix string) ([]model.Symbol, []model.CompletionItem, error) {
	pattern := fuzzyLikePrefix(prefix)
	var syms []model.Symbol
	var items []model.CompletionItem
	query := `SELECT symbols.id, symbols.package, symbols.name, symbols.scope, symbols.kind, symbols.sub_kind,
			symbols.language, symbols.properties,
			symbols.loc_file_uri, symbols.loc_begin_line, symbols.loc_begin_col, symbols.loc_end_line, symbols.loc_end_col,
			symbols.decl_file_uri, symbols.decl_begin_line, symbols.decl_begin_col, symbols.decl_end_line, symbols.decl_end_col,
			symbols.signature, symbols.return_type, symbols.type, symbols.documentation,
			symbols.template_spec_args, symbols.completion_suffix,
			symbols.modifier, symbols.syscap, symbols.flags, symbols.cur_module,
			completions.label, completions.insert_text
		FROM completions JOIN symbols ON symbols.id = completions.symbol_id
		WHERE completions.label LIKE ? ESCAPE '\' COLLATE NOCASE`
	err := b.withStmt(query, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, pattern)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sym, label, insertText, err := scanSymbolWithCompletion(rows)
			if err != nil {
				return err
			}
			syms = append(syms, sym)
			items = append(items, model.CompletionItem{Label: label, InsertText: insertText})
		}
		return rows.Err()
	})
	if err != nil {
		b.log.Warn("sqlbackend: completions failed", zap.Error(err))
		return nil, nil, nil
	}
	return syms, items, nil
}

// scanSymbolWithCompletion scans a symbolCols row followed by a
// (label, insert_text) pair, as produced by the Completions query.
func scanSymbolWithCompletion(rows *sql.Rows) (model.Symbol, string, string, error) {
	var s model.Symbol
	var idBytes []byte
	var pkg string
	var kind, subKind, language, properties, flags int
	var locBL, locBC, locEL, locEC, declBL, declBC, declEL, declEC int
	var label, insertText string
	if err := rows.Scan(
		&idBytes, &pkg, &s.Name, &s.Scope, &kind, &subKind, &language, &properties,
		&s.Location.FileURI, &locBL, &locBC, &locEL, &locEC,
		&s.Declaration.FileURI, &declBL, &declBC, &declEL, &declEC,
		&s.Signature, &s.ReturnType, &s.Type, &s.Documentation, &s.TemplateSpecializationArgs, &s.CompletionSnippetSuffix,
		&s.Modifier, &s.Syscap, &flags, &s.CurModule,
		&label, &insertText,
	); err != nil {
		return s, "", "", err
	}
	var arr [8]byte
	copy(arr[:], idBytes)
	s.ID = codec.IDFromBytes(arr)
	s.Kind = model.SymbolKind(kind)
	s.SubKind = uint32(subKind)
	s.Language = uint32(language)
	s.Properties = uint32(properties)
	s.Flags = model.SymbolFlag(flags)
	s.Location.Begin = model.Position{Line: uint32(locBL), Column: uint32(locBC)}
	s.Location.End = model.Position{Line: uint32(locEL), Column: uint32(locEC)}
	s.Declaration.Begin = model.Position{Line: uint32(declBL), Column: uint32(declBC)}
	s.Declaration.End = model.Position{Line: uint32(declEL), Column: uint32(declEC)}
	return s, label, insertText, nil
}

// Relations yields every relation where Predicate == p and either Subject
// or Object equals id. For a predicate with a stored dual (only Overrides,
// per model.Predicate.Dual), the dual relation is queried instead and the
// predicate is rewritten back to p on the way out — the index only ever
// stores one direction of that pair (spec.md §4.6, §9 Open Question 1).
func (b *Backend) Relations(ctx context.Context, id model.SymbolID, p model.Predicate) ([]model.Relation, error) {
	queryPred, rewrite := p.Dual()
	idBytes := codec.IDToBytes(id)
	var out []model.Relation
	err := b.withStmt(`SELECT subject, predicate, object FROM relations WHERE predicate = ? AND (subject = ? OR object = ?)`,
		func(stmt *sql.Stmt) error {
			rows, err := stmt.QueryContext(ctx, int(queryPred), idBytes[:], idBytes[:])
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var subj, obj []byte
				var pred int
				if err := rows.Scan(&subj, &pred, &obj); err != nil {
					return err
				}
				var subjArr, objArr [8]byte
				copy(subjArr[:], subj)
				copy(objArr[:], obj)
				rel := model.Relation{
					Subject:   codec.IDFromBytes(subjArr),
					Predicate: model.Predicate(pred),
					Object:    codec.IDFromBytes(objArr),
				}
				if rewrite {
					rel.Predicate = p
				}
				out = append(out, rel)
			}
			return rows.Err()
		})
	if err != nil {
		b.log.Warn("sqlbackend: relations failed", zap.Error(err))
		return nil, nil
	}
	return out, nil
}

func scanRef(rows *sql.Rows) (model.Ref, error) {
	var r model.Ref
	var bl, bc, el, ec, k int
	var container []byte
	var isCjo, isSuper bool
	if err := rows.Scan(&r.Location.FileURI, &bl, &bc, &el, &ec, &k, &container, &isCjo, &isSuper); err != nil {
		return r, err
	}
	r.Location.Begin = model.Position{Line: uint32(bl), Column: uint32(bc)}
	r.Location.End = model.Position{Line: uint32(el), Column: uint32(ec)}
	r.Kind = model.RefKind(k)
	var containerArr [8]byte
	copy(containerArr[:], container)
	r.Container = codec.IDFromBytes(containerArr)
	r.IsCjoRef = isCjo
	r.IsSuper = isSuper
	return r, nil
}

// ReferencesTo returns every ref targeting id, optionally filtered to kind.
func (b *Backend) ReferencesTo(ctx context.Context, id model.SymbolID, kind *model.RefKind) ([]model.Ref, error) {
	idBytes := codec.IDToBytes(id)
	query := `SELECT file_uri, begin_line, begin_col, end_line, end_col, kind, container, is_cjo_ref, is_super FROM refs WHERE symbol_id = ?`
	args := []any{idBytes[:]}
	if kind != nil {
		query += ` AND kind = ?`
		args = append(args, int(*kind))
	}
	var out []model.Ref
	err := b.withStmt(query, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRef(rows)
			if err != nil {
				return err
			}
			r.Symbol = id
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		b.log.Warn("sqlbackend: references to failed", zap.Error(err))
		return nil, nil
	}
	return out, nil
}

// FileReferences returns every (SymbolID, Ref) pair recorded against
// fileURI, optionally filtered to kind.
func (b *Backend) FileReferences(ctx context.Context, fileURI string, kind *model.RefKind) ([]model.RefEntry, error) {
	query := `SELECT symbol_id, file_uri, begin_line, begin_col, end_line, end_col, kind, container, is_cjo_ref, is_super FROM refs WHERE file_uri = ?`
	args := []any{fileURI}
	if kind != nil {
		query += ` AND kind = ?`
		args = append(args, int(*kind))
	}
	var out []model.RefEntry
	err := b.withStmt(query, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var symID []byte
			var r model.Ref
			var bl, bc, el, ec, k int
			var container []byte
			var isCjo, isSuper bool
			if err := rows.Scan(&symID, &r.Location.FileURI, &bl, &bc, &el, &ec, &k, &container, &isCjo, &isSuper); err != nil {
				return err
			}
			r.Location.Begin = model.Position{Line: uint32(bl), Column: uint32(bc)}
			r.Location.End = model.Position{Line: uint32(el), Column: uint32(ec)}
			r.Kind = model.RefKind(k)
			var symArr, containerArr [8]byte
			copy(symArr[:], symID)
			copy(containerArr[:], container)
			r.Container = codec.IDFromBytes(containerArr)
			r.IsCjoRef = isCjo
			r.IsSuper = isSuper
			out = append(out, model.RefEntry{Symbol: codec.IDFromBytes(symArr), Ref: r})
		}
		return rows.Err()
	})
	if err != nil {
		b.log.Warn("sqlbackend: file references failed", zap.Error(err))
		return nil, nil
	}
	return out, nil
}

// CrossSymbols returns every cross_symbols row recorded for pkg, optionally
// filtered to an exact name.
func (b *Backend) CrossSymbols(ctx context.Context, pkg, name string) ([]model.CrossSymbol, error) {
	query := `SELECT id, name, cross_type, container, container_name, loc_file_uri, loc_begin_line, loc_begin_col, loc_end_line, loc_end_col FROM cross_symbols WHERE package = ?`
	args := []any{pkg}
	if name != "" {
		query += ` AND name = ?`
		args = append(args, name)
	}
	var out []model.CrossSymbol
	err := b.withStmt(query, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var cs model.CrossSymbol
			var id, container []byte
			var crossType, locBL, locBC, locEL, locEC int
			if err := rows.Scan(&id, &cs.Name, &crossType, &container, &cs.ContainerName, &cs.Location.FileURI, &locBL, &locBC, &locEL, &locEC); err != nil {
				return err
			}
			var idArr, containerArr [8]byte
			copy(idArr[:], id)
			copy(containerArr[:], container)
			cs.ID = codec.IDFromBytes(idArr)
			cs.Container = codec.IDFromBytes(containerArr)
			cs.CrossType = model.CrossType(crossType)
			cs.Location.Begin = model.Position{Line: uint32(locBL), Column: uint32(locBC)}
			cs.Location.End = model.Position{Line: uint32(locEL), Column: uint32(locEC)}
			out = append(out, cs)
		}
		return rows.Err()
	})
	if err != nil {
		b.log.Warn("sqlbackend: cross symbols failed", zap.Error(err))
		return nil, nil
	}
	return out, nil
}

// SymbolsByPackage returns every symbol currently stored for pkg, used by
// UpdateController to capture the "before" snapshot of a package's symbols
// ahead of a ReplacePackage call, for blast-radius signature diffing
// (SPEC_FULL.md §10).
func (b *Backend) SymbolsByPackage(ctx context.Context, pkg string) ([]model.Symbol, error) {
	var out []model.Symbol
	err := b.withStmt(`SELECT `+symbolCols+` FROM symbols WHERE package = ?`, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, pkg)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sym, err := scanSymbolRow(rows)
			if err != nil {
				return err
			}
			out = append(out, sym)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: symbols by package: %w", err)
	}
	return out, nil
}

// FilesReferencingSymbols returns the set of file URIs holding a ref
// targeting any of ids — the file-level counterpart of
// PackagesReferencingSymbols, which is the package-level blast-radius
// query UpdateController uses (SPEC_FULL.md §10).
func (b *Backend) FilesReferencingSymbols(ctx context.Context, ids []model.SymbolID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	idArgs := make([]any, len(ids))
	for i, id := range ids {
		ib := codec.IDToBytes(id)
		idArgs[i] = ib[:]
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT DISTINCT file_uri FROM refs WHERE symbol_id IN (` + ph + `) AND file_uri IS NOT NULL AND file_uri != ''`

	seen := make(map[string]struct{})
	err := b.withStmt(query, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, idArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var uri string
			if err := rows.Scan(&uri); err != nil {
				return err
			}
			seen[uri] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: files referencing symbols: %w", err)
	}
	out := make([]string, 0, len(seen))
	for uri := range seen {
		out = append(out, uri)
	}
	return out, nil
}

// PackagesReferencingSymbols returns the set of packages holding a ref,
// relation, or extends row against any of ids, excluding excludePkg (a
// package's own internal references to its own symbols never widen its
// blast radius). UpdateController calls this after a ReplacePackage whose
// incoming shard dropped or changed the signature of a symbol in ids, to
// find which other packages must be scheduled for re-resolution
// (SPEC_FULL.md §10).
func (b *Backend) PackagesReferencingSymbols(ctx context.Context, ids []model.SymbolID, excludePkg string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	idArgs := make([]any, len(ids))
	for i, id := range ids {
		ib := codec.IDToBytes(id)
		idArgs[i] = ib[:]
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	seen := make(map[string]struct{})
	for _, table := range []string{"refs", "relations", "extends"} {
		var query string
		switch table {
		case "relations":
			query = `SELECT DISTINCT package FROM relations WHERE package != ? AND (subject IN (` + ph + `) OR object IN (` + ph + `))`
		case "extends":
			query = `SELECT DISTINCT package FROM extends WHERE package != ? AND (symbol_id IN (` + ph + `) OR extended_type IN (` + ph + `))`
		default:
			query = `SELECT DISTINCT package FROM refs WHERE package != ? AND symbol_id IN (` + ph + `)`
		}
		args := append([]any{excludePkg}, idArgs...)
		if table != "refs" {
			args = append(args, idArgs...)
		}
		err := b.withStmt(query, func(stmt *sql.Stmt) error {
			rows, err := stmt.QueryContext(ctx, args...)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var pkg string
				if err := rows.Scan(&pkg); err != nil {
					return err
				}
				seen[pkg] = struct{}{}
			}
			return rows.Err()
		})
		if err != nil {
			return nil, fmt.Errorf("sqlbackend: packages referencing symbols (%s): %w", table, err)
		}
	}
	out := make([]string, 0, len(seen))
	for pkg := range seen {
		out = append(out, pkg)
	}
	return out, nil
}
