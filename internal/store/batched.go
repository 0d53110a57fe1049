package store

import (
	"sync"

	"github.com/jward/tsbundle/internal/syntax"
)

// BatchedStore buffers extractions in memory so parallel loaders never
// contend on SQLite writes. Lookups consult the buffer first and then pass
// through to the underlying Store, which is safe for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Files  []*syntax.File
	Hashes []string
	index  map[string]int // path -> position in Files
}

// Compile-time check: *BatchedStore satisfies FileCache.
var _ FileCache = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for
// lookups.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{store: s, index: make(map[string]int)}
}

// PutFile buffers f. A later put for the same path replaces the earlier one.
func (b *BatchedStore) PutFile(f *syntax.File, hash string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.index[f.Path]; ok {
		b.Files[i] = f
		b.Hashes[i] = hash
		return nil
	}
	b.index[f.Path] = len(b.Files)
	b.Files = append(b.Files, f)
	b.Hashes = append(b.Hashes, hash)
	return nil
}

// LookupFile checks buffered extractions before the database.
func (b *BatchedStore) LookupFile(path, hash string) (*syntax.File, bool, error) {
	b.mu.Lock()
	if i, ok := b.index[path]; ok && b.Hashes[i] == hash {
		f := b.Files[i]
		b.mu.Unlock()
		return f, true, nil
	}
	b.mu.Unlock()
	if b.store == nil {
		return nil, false, nil
	}
	return b.store.LookupFile(path, hash)
}

// Len reports the number of buffered files.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Files)
}
