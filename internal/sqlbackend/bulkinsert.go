package sqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jward/symindex/internal/codec"
	"github.com/jward/symindex/internal/model"
)

// maxChunkRows bounds how many rows a single multi-row INSERT statement
// covers, keeping the statement's total parameter count well under
// SQLite's default SQLITE_MAX_VARIABLE_NUMBER. The final chunk for a batch
// is shorter than maxChunkRows when the row count doesn't divide evenly.
const maxChunkRows = 200

// ReplacePackage atomically replaces every row belonging to pkgName with
// the contents of shard: delete-then-bulk-insert inside one Update
// transaction, matching the teacher's DeleteFileData-then-reinsert idiom
// generalized from files to packages.
func (b *Backend) ReplacePackage(ctx context.Context, shard *model.Shard) error {
	return b.Update(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM comments WHERE symbol_id IN (SELECT id FROM symbols WHERE package = ?)`, shard.PkgName); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM completions WHERE symbol_id IN (SELECT id FROM symbols WHERE package = ?)`, shard.PkgName); err != nil {
			return fmt.Errorf("delete completions: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM symbols WHERE package = ?`, shard.PkgName); err != nil {
			return fmt.Errorf("delete symbols: %w", err)
		}
		for _, table := range []string{"refs", "relations", "extends", "cross_symbols"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE package = ?`, shard.PkgName); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}

		if err := insertSymbols(tx, shard.PkgName, shard.Symbols); err != nil {
			return err
		}
		if err := insertRefs(tx, shard.PkgName, shard.Refs); err != nil {
			return err
		}
		if err := insertRelations(tx, shard.PkgName, shard.Relations); err != nil {
			return err
		}
		if err := insertExtends(tx, shard.PkgName, shard.Extends); err != nil {
			return err
		}
		return insertCrossSymbols(tx, shard.PkgName, shard.CrossSymbols)
	})
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

func placeholders(nCols, nRows int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?,", nCols), ",") + ")"
	rows := make([]string, nRows)
	for i := range rows {
		rows[i] = row
	}
	return strings.Join(rows, ",")
}

func insertSymbols(tx *sql.Tx, pkg string, symbols []model.Symbol) error {
	const cols = 28
	for _, part := range chunk(symbols, maxChunkRows) {
		args := make([]any, 0, len(part)*cols)
		for _, s := range part {
			id := codec.IDToBytes(s.ID)
			args = append(args,
				id[:], pkg, s.Name, s.Scope, int(s.Kind), int(s.SubKind), int(s.Language), int(s.Properties),
				s.Location.FileURI, int(s.Location.Begin.Line), int(s.Location.Begin.Column), int(s.Location.End.Line), int(s.Location.End.Column),
				s.Declaration.FileURI, int(s.Declaration.Begin.Line), int(s.Declaration.Begin.Column), int(s.Declaration.End.Line), int(s.Declaration.End.Column),
				s.Signature, s.ReturnType, s.Type, s.Documentation, s.TemplateSpecializationArgs, s.CompletionSnippetSuffix,
				s.Modifier, s.Syscap, int(s.Flags), s.CurModule,
			)
		}
		query := `INSERT INTO symbols (
			id, package, name, scope, kind, sub_kind, language, properties,
			loc_file_uri, loc_begin_line, loc_begin_col, loc_end_line, loc_end_col,
			decl_file_uri, decl_begin_line, decl_begin_col, decl_end_line, decl_end_col,
			signature, return_type, type, documentation, template_spec_args, completion_suffix,
			modifier, syscap, flags, cur_module
		) VALUES ` + placeholders(cols, len(part))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("insert symbols: %w", err)
		}
		if err := insertCommentsAndCompletions(tx, part); err != nil {
			return err
		}
	}
	return nil
}

func insertCommentsAndCompletions(tx *sql.Tx, symbols []model.Symbol) error {
	type row struct {
		id    [8]byte
		kind  int
		ord   int
		style int
		text  string
	}
	var comments []row
	for _, s := range symbols {
		id := codec.IDToBytes(s.ID)
		for groupKind, group := range [][]model.Comment{s.CommentsLeading, s.CommentsInner, s.CommentsTrailing} {
			for i, c := range group {
				comments = append(comments, row{id, groupKind, i, int(c.Style), c.Text})
			}
		}
	}
	for _, part := range chunk(comments, maxChunkRows) {
		args := make([]any, 0, len(part)*5)
		for _, r := range part {
			args = append(args, r.id[:], r.kind, r.ord, r.style, r.text)
		}
		query := `INSERT INTO comments (symbol_id, group_kind, ordinal, style, text) VALUES ` + placeholders(5, len(part))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("insert comments: %w", err)
		}
	}

	type citem struct {
		id     [8]byte
		label  string
		insert string
	}
	var completions []citem
	for _, s := range symbols {
		id := codec.IDToBytes(s.ID)
		for _, c := range s.CompletionItems {
			completions = append(completions, citem{id, c.Label, c.InsertText})
		}
	}
	for _, part := range chunk(completions, maxChunkRows) {
		args := make([]any, 0, len(part)*3)
		for _, c := range part {
			args = append(args, c.id[:], c.label, c.insert)
		}
		query := `INSERT INTO completions (symbol_id, label, insert_text) VALUES ` + placeholders(3, len(part))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("insert completions: %w", err)
		}
	}
	return nil
}

func insertRefs(tx *sql.Tx, pkg string, refs []model.RefEntry) error {
	const cols = 11
	for _, part := range chunk(refs, maxChunkRows) {
		args := make([]any, 0, len(part)*cols)
		for _, re := range part {
			id := codec.IDToBytes(re.Symbol)
			container := codec.IDToBytes(re.Ref.Container)
			args = append(args,
				pkg, id[:], re.Ref.Location.FileURI,
				int(re.Ref.Location.Begin.Line), int(re.Ref.Location.Begin.Column),
				int(re.Ref.Location.End.Line), int(re.Ref.Location.End.Column),
				int(re.Ref.Kind), container[:], re.Ref.IsCjoRef, re.Ref.IsSuper,
			)
		}
		query := `INSERT INTO refs (package, symbol_id, file_uri, begin_line, begin_col, end_line, end_col, kind, container, is_cjo_ref, is_super) VALUES ` + placeholders(cols, len(part))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("insert refs: %w", err)
		}
	}
	return nil
}

func insertRelations(tx *sql.Tx, pkg string, relations []model.Relation) error {
	const cols = 4
	for _, part := range chunk(relations, maxChunkRows) {
		args := make([]any, 0, len(part)*cols)
		for _, rel := range part {
			subj := codec.IDToBytes(rel.Subject)
			obj := codec.IDToBytes(rel.Object)
			args = append(args, pkg, subj[:], int(rel.Predicate), obj[:])
		}
		query := `INSERT INTO relations (package, subject, predicate, object) VALUES ` + placeholders(cols, len(part))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("insert relations: %w", err)
		}
	}
	return nil
}

func insertExtends(tx *sql.Tx, pkg string, extends []model.ExtendEntry) error {
	const cols = 5
	for _, part := range chunk(extends, maxChunkRows) {
		args := make([]any, 0, len(part)*cols)
		for _, ex := range part {
			id := codec.IDToBytes(ex.Item.Symbol)
			ext := codec.IDToBytes(ex.Item.ExtendedType)
			args = append(args, pkg, id[:], ext[:], ex.Item.Modifier, ex.Item.InterfaceName)
		}
		query := `INSERT INTO extends (package, symbol_id, extended_type, modifier, interface_name) VALUES ` + placeholders(cols, len(part))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("insert extends: %w", err)
		}
	}
	return nil
}

func insertCrossSymbols(tx *sql.Tx, pkg string, crossSymbols []model.CrossSymbol) error {
	const cols = 11
	for _, part := range chunk(crossSymbols, maxChunkRows) {
		args := make([]any, 0, len(part)*cols)
		for _, cs := range part {
			id := codec.IDToBytes(cs.ID)
			container := codec.IDToBytes(cs.Container)
			args = append(args,
				id[:], pkg, cs.Name, int(cs.CrossType), container[:], cs.ContainerName,
				cs.Location.FileURI, int(cs.Location.Begin.Line), int(cs.Location.Begin.Column),
				int(cs.Location.End.Line), int(cs.Location.End.Column),
			)
		}
		query := `INSERT INTO cross_symbols (id, package, name, cross_type, container, container_name, loc_file_uri, loc_begin_line, loc_begin_col, loc_end_line, loc_end_col) VALUES ` + placeholders(cols, len(part))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("insert cross_symbols: %w", err)
		}
	}
	return nil
}
