package pathres

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem is the read-only file view the resolver and loader consume.
// Paths are slash-separated.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	FileExists(path string) bool
}

// OSFileSystem reads from the host file system.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(p string) ([]byte, error) {
	return os.ReadFile(filepath.FromSlash(p))
}

func (OSFileSystem) FileExists(p string) bool {
	info, err := os.Stat(filepath.FromSlash(p))
	return err == nil && !info.IsDir()
}

// NewFS adapts an fs.FS. Absolute paths are looked up with the leading
// slash removed, so "/src/a.ts" names "src/a.ts" inside fsys.
func NewFS(fsys fs.FS) FileSystem {
	return ioFS{fsys: fsys}
}

type ioFS struct {
	fsys fs.FS
}

func (f ioFS) name(p string) string {
	p = strings.TrimPrefix(Clean(p), "/")
	if p == "" {
		return "."
	}
	return p
}

func (f ioFS) ReadFile(p string) ([]byte, error) {
	return fs.ReadFile(f.fsys, f.name(p))
}

func (f ioFS) FileExists(p string) bool {
	info, err := fs.Stat(f.fsys, f.name(p))
	return err == nil && !info.IsDir()
}
