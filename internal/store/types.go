package store

import "time"

// File is one row of the files table.
type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LastIndexed time.Time
}
