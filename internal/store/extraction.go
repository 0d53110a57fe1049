package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jward/tsbundle/internal/syntax"
)

// PutFile replaces the cached extraction for f.Path in one transaction.
func (s *Store) PutFile(f *syntax.File, hash string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("put file: begin: %w", err)
	}
	defer tx.Rollback()
	if err := putFileTx(tx, f, hash, time.Now()); err != nil {
		return fmt.Errorf("put file %s: %w", f.Path, err)
	}
	return tx.Commit()
}

func putFileTx(tx *sql.Tx, f *syntax.File, hash string, indexed time.Time) error {
	var oldID int64
	err := tx.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&oldID)
	switch {
	case err == nil:
		if err := deleteFileTx(tx, oldID); err != nil {
			return err
		}
	case err != sql.ErrNoRows:
		return fmt.Errorf("lookup file: %w", err)
	}

	res, err := tx.Exec(
		"INSERT INTO files (path, language, hash, last_indexed) VALUES (?, ?, ?, ?)",
		f.Path, LanguageFor(f.Path), hash, indexed,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i := range f.Decls {
		if err := insertDeclTx(tx, fileID, i, &f.Decls[i]); err != nil {
			return fmt.Errorf("declaration %q: %w", f.Decls[i].Name, err)
		}
	}
	for i, imp := range f.Imports {
		if _, err := tx.Exec(
			`INSERT INTO imports (file_id, ordinal, kind, local_name, remote_name, source, type_only, line)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			fileID, i, string(imp.Kind), imp.Local, imp.Remote, imp.Source, imp.TypeOnly, imp.Line,
		); err != nil {
			return fmt.Errorf("import %q: %w", imp.Source, err)
		}
	}
	for i, exp := range f.Exports {
		if _, err := tx.Exec(
			`INSERT INTO exports (file_id, ordinal, kind, name, local_name, source, type_only, line)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			fileID, i, string(exp.Kind), exp.Name, exp.Local, exp.Source, exp.TypeOnly, exp.Line,
		); err != nil {
			return fmt.Errorf("export %q: %w", exp.Name, err)
		}
	}
	return nil
}

func insertDeclTx(tx *sql.Tx, fileID int64, ordinal int, d *syntax.Decl) error {
	res, err := tx.Exec(
		`INSERT INTO declarations (file_id, ordinal, name, kind, exported, is_default, anon,
			text, doc, name_start, name_end, type_params, line)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fileID, ordinal, d.Name, string(d.Kind), d.Exported, d.Default, string(d.Anon),
		d.Text, d.Doc, d.NameStart, d.NameEnd, marshalList(d.TypeParams), d.Line,
	)
	if err != nil {
		return err
	}
	declID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i, r := range d.Refs {
		if _, err := tx.Exec(
			"INSERT INTO type_refs (declaration_id, ordinal, parts, start_off, end_off, is_value) VALUES (?, ?, ?, ?, ?, ?)",
			declID, i, joinParts(r.Parts), r.Start, r.End, r.Value,
		); err != nil {
			return fmt.Errorf("ref %q: %w", r.Name(), err)
		}
	}
	return nil
}

// LookupFile returns the cached extraction for path when the stored hash
// matches. A miss returns (nil, false, nil).
func (s *Store) LookupFile(path, hash string) (*syntax.File, bool, error) {
	row, err := s.FileByPath(path)
	if err != nil || row == nil || row.Hash != hash {
		return nil, false, err
	}

	f := &syntax.File{Path: path}
	if f.Decls, err = s.declarations(row.ID); err != nil {
		return nil, false, err
	}
	if f.Imports, err = s.imports(row.ID); err != nil {
		return nil, false, err
	}
	if f.Exports, err = s.exports(row.ID); err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func (s *Store) declarations(fileID int64) ([]syntax.Decl, error) {
	rows, err := s.db.Query(
		`SELECT id, name, kind, exported, is_default, anon, text, doc, name_start, name_end, type_params, line
		 FROM declarations WHERE file_id = ? ORDER BY ordinal`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	var (
		decls []syntax.Decl
		ids   []int64
	)
	for rows.Next() {
		var (
			d                      syntax.Decl
			id                     int64
			kind, anon, typeParams string
			doc                    sql.NullString
		)
		if err := rows.Scan(&id, &d.Name, &kind, &d.Exported, &d.Default, &anon, &d.Text, &doc,
			&d.NameStart, &d.NameEnd, &typeParams, &d.Line); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		d.Kind = syntax.Kind(kind)
		d.Anon = syntax.AnonForm(anon)
		d.Doc = doc.String
		d.TypeParams = unmarshalList(typeParams)
		decls = append(decls, d)
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		refs, err := s.typeRefs(id)
		if err != nil {
			return nil, err
		}
		decls[i].Refs = refs
	}
	return decls, nil
}

func (s *Store) typeRefs(declID int64) ([]syntax.Ref, error) {
	rows, err := s.db.Query(
		"SELECT parts, start_off, end_off, is_value FROM type_refs WHERE declaration_id = ? ORDER BY ordinal", declID)
	if err != nil {
		return nil, fmt.Errorf("query type refs: %w", err)
	}
	defer rows.Close()
	var refs []syntax.Ref
	for rows.Next() {
		var (
			r     syntax.Ref
			parts string
		)
		if err := rows.Scan(&parts, &r.Start, &r.End, &r.Value); err != nil {
			return nil, fmt.Errorf("scan type ref: %w", err)
		}
		r.Parts = splitParts(parts)
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *Store) imports(fileID int64) ([]syntax.Import, error) {
	rows, err := s.db.Query(
		`SELECT kind, local_name, remote_name, source, type_only, line
		 FROM imports WHERE file_id = ? ORDER BY ordinal`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()
	var out []syntax.Import
	for rows.Next() {
		var (
			imp           syntax.Import
			kind          string
			local, remote sql.NullString
		)
		if err := rows.Scan(&kind, &local, &remote, &imp.Source, &imp.TypeOnly, &imp.Line); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imp.Kind = syntax.ImportKind(kind)
		imp.Local = local.String
		imp.Remote = remote.String
		out = append(out, imp)
	}
	return out, rows.Err()
}

func (s *Store) exports(fileID int64) ([]syntax.Export, error) {
	rows, err := s.db.Query(
		`SELECT kind, name, local_name, source, type_only, line
		 FROM exports WHERE file_id = ? ORDER BY ordinal`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()
	var out []syntax.Export
	for rows.Next() {
		var (
			exp                 syntax.Export
			kind                string
			name, local, source sql.NullString
		)
		if err := rows.Scan(&kind, &name, &local, &source, &exp.TypeOnly, &exp.Line); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		exp.Kind = syntax.ExportKind(kind)
		exp.Name = name.String
		exp.Local = local.String
		exp.Source = source.String
		out = append(out, exp)
	}
	return out, rows.Err()
}
