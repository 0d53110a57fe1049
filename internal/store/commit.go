package store

import (
	"fmt"
	"time"
)

// CommitBatch writes every buffered extraction from a BatchedStore within a
// single transaction, replacing older rows for the same paths.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()
	if len(batch.Files) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for i, f := range batch.Files {
		if err := putFileTx(tx, f, batch.Hashes[i], now); err != nil {
			return fmt.Errorf("commit batch: file %s: %w", f.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	batch.Files = nil
	batch.Hashes = nil
	batch.index = make(map[string]int)
	return nil
}
