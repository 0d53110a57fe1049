package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite extraction cache. It keeps the statement-level view
// of each parsed file keyed by path and content hash so unchanged files are
// not parsed again across runs.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT NOT NULL,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS declarations (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  exported        BOOLEAN DEFAULT FALSE,
  is_default      BOOLEAN DEFAULT FALSE,
  anon            TEXT,
  text            TEXT NOT NULL,
  doc             TEXT,
  name_start      INTEGER,
  name_end        INTEGER,
  type_params     TEXT,
  line            INTEGER
);

CREATE TABLE IF NOT EXISTS type_refs (
  id              INTEGER PRIMARY KEY,
  declaration_id  INTEGER NOT NULL REFERENCES declarations(id),
  ordinal         INTEGER NOT NULL,
  parts           TEXT NOT NULL,
  start_off       INTEGER,
  end_off         INTEGER,
  is_value        BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  ordinal         INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  local_name      TEXT,
  remote_name     TEXT,
  source          TEXT NOT NULL,
  type_only       BOOLEAN DEFAULT FALSE,
  line            INTEGER
);

CREATE TABLE IF NOT EXISTS exports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  ordinal         INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  name            TEXT,
  local_name      TEXT,
  source          TEXT,
  type_only       BOOLEAN DEFAULT FALSE,
  line            INTEGER
);

CREATE INDEX IF NOT EXISTS idx_declarations_file ON declarations(file_id);
CREATE INDEX IF NOT EXISTS idx_declarations_name ON declarations(name);
CREATE INDEX IF NOT EXISTS idx_type_refs_declaration ON type_refs(declaration_id);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
CREATE INDEX IF NOT EXISTS idx_imports_source ON imports(source);
CREATE INDEX IF NOT EXISTS idx_exports_file ON exports(file_id);
`

// FileByPath returns the file row for path, or nil when none exists.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	var indexed sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, path, language, hash, last_indexed FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &indexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path %s: %w", path, err)
	}
	f.LastIndexed = indexed.Time
	return f, nil
}

// Files returns every cached file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, language, hash, last_indexed FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var out []*File
	for rows.Next() {
		f := &File{}
		var indexed sql.NullTime
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &indexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.LastIndexed = indexed.Time
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFileData transactionally removes a file and everything extracted
// from it. Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := deleteFileTx(tx, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteFileTx(tx *sql.Tx, fileID int64) error {
	for _, q := range []string{
		"DELETE FROM type_refs WHERE declaration_id IN (SELECT id FROM declarations WHERE file_id = ?)",
		"DELETE FROM declarations WHERE file_id = ?",
		"DELETE FROM imports WHERE file_id = ?",
		"DELETE FROM exports WHERE file_id = ?",
		"DELETE FROM files WHERE id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}
	return nil
}

// Prune removes cached files for which keep returns false and reports how
// many were removed.
func (s *Store) Prune(keep func(path string) bool) (int, error) {
	files, err := s.Files()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if keep(f.Path) {
			continue
		}
		if err := s.DeleteFileData(f.ID); err != nil {
			return removed, fmt.Errorf("prune %s: %w", f.Path, err)
		}
		removed++
	}
	return removed, nil
}
