package store

import (
	"crypto/sha256"
	"fmt"
	"path"
	"strings"
)

// ExtractorVersion salts content hashes so cache entries written by an
// older extractor are never reused.
const ExtractorVersion = "ts-extract/1"

// ContentHash returns the cache key for a file's content.
func ContentHash(content []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", ExtractorVersion)
	h.Write(content)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// LanguageFor names the grammar recorded for a path.
func LanguageFor(p string) string {
	if strings.EqualFold(path.Ext(p), ".tsx") {
		return "tsx"
	}
	return "typescript"
}
