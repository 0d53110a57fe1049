package store

import "github.com/jward/tsbundle/internal/syntax"

// FileCache is the lookup and put surface of an extraction cache. Store
// writes through to SQLite; BatchedStore buffers puts until CommitBatch.
type FileCache interface {
	// LookupFile returns the cached extraction for path when its stored
	// hash equals hash.
	LookupFile(path, hash string) (*syntax.File, bool, error)
	// PutFile records the extraction for f.Path under hash.
	PutFile(f *syntax.File, hash string) error
}

// Compile-time check: *Store satisfies FileCache.
var _ FileCache = (*Store)(nil)
