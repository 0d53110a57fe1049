// Package pathres maps import specifiers to canonical module paths.
//
// Relative specifiers resolve against the importing file's directory,
// aliased specifiers against the longest matching alias prefix, and bare
// specifiers against baseUrl and then node_modules. Each candidate base is
// probed as a literal file, with each supported extension appended, and
// finally as a directory holding an index file.
package pathres

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions lists the suffixes tried, in order, when a specifier names a
// file without one.
var Extensions = []string{".ts", ".tsx", ".d.ts", ".mts", ".cts"}

// jsCounterparts maps emitted-JavaScript extensions written in specifiers
// to the TypeScript sources that produce them.
var jsCounterparts = map[string][]string{
	".js":  {".ts", ".tsx", ".d.ts"},
	".jsx": {".tsx", ".d.ts"},
	".mjs": {".mts", ".d.mts"},
	".cjs": {".cts", ".d.cts"},
}

// UnresolvedImportError reports a specifier that maps to no file.
type UnresolvedImportError struct {
	From      string
	Specifier string
}

func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("unresolved import %q from %s", e.Specifier, e.From)
}

// AliasTable maps alias prefixes (e.g. "@utils") to root directories.
type AliasTable map[string]string

// Normalize strips tsconfig-style "/*" suffixes from keys and targets and
// cleans the targets.
func (t AliasTable) Normalize() AliasTable {
	out := make(AliasTable, len(t))
	for k, v := range t {
		k = strings.TrimSuffix(strings.TrimSuffix(k, "*"), "/")
		v = strings.TrimSuffix(strings.TrimSuffix(v, "*"), "/")
		if k == "" {
			continue
		}
		out[k] = Clean(v)
	}
	return out
}

// Clean returns the canonical slash-separated form of p.
func Clean(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(filepath.ToSlash(p))
}

type alias struct {
	prefix string
	target string
}

// Resolver resolves specifiers over a FileSystem. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	fs          FileSystem
	aliases     []alias // longest prefix first
	baseURL     string
	nodeModules bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAliases sets the path alias table.
func WithAliases(t AliasTable) Option {
	return func(r *Resolver) {
		r.aliases = r.aliases[:0]
		for k, v := range t.Normalize() {
			r.aliases = append(r.aliases, alias{prefix: k, target: v})
		}
		sort.Slice(r.aliases, func(i, j int) bool {
			if len(r.aliases[i].prefix) != len(r.aliases[j].prefix) {
				return len(r.aliases[i].prefix) > len(r.aliases[j].prefix)
			}
			return r.aliases[i].prefix < r.aliases[j].prefix
		})
	}
}

// WithBaseURL sets the directory bare specifiers are tried against.
func WithBaseURL(dir string) Option {
	return func(r *Resolver) {
		r.baseURL = Clean(dir)
	}
}

// WithNodeModules enables or disables node_modules lookup (default on).
func WithNodeModules(enabled bool) Option {
	return func(r *Resolver) {
		r.nodeModules = enabled
	}
}

// New creates a Resolver reading from fsys.
func New(fsys FileSystem, opts ...Option) *Resolver {
	r := &Resolver{fs: fsys, nodeModules: true}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve maps specifier, written in the module at from, to a canonical
// path. It returns *UnresolvedImportError when nothing matches.
func (r *Resolver) Resolve(from, specifier string) (string, error) {
	from = Clean(from)
	switch {
	case isRelative(specifier):
		if p, ok := r.probe(path.Join(path.Dir(from), specifier)); ok {
			return p, nil
		}
	case path.IsAbs(specifier):
		if p, ok := r.probe(specifier); ok {
			return p, nil
		}
	default:
		if base, ok := r.matchAlias(specifier); ok {
			if p, ok := r.probe(base); ok {
				return p, nil
			}
		}
		if r.baseURL != "" {
			if p, ok := r.probe(path.Join(r.baseURL, specifier)); ok {
				return p, nil
			}
		}
		if r.nodeModules {
			if p, ok := r.nodeModule(from, specifier); ok {
				return p, nil
			}
		}
	}
	return "", &UnresolvedImportError{From: from, Specifier: specifier}
}

// matchAlias returns the rewritten base path for an aliased specifier.
func (r *Resolver) matchAlias(specifier string) (string, bool) {
	for _, a := range r.aliases {
		if specifier == a.prefix {
			return a.target, true
		}
		if strings.HasPrefix(specifier, a.prefix+"/") {
			return path.Join(a.target, specifier[len(a.prefix)+1:]), true
		}
	}
	return "", false
}

func isRelative(s string) bool {
	return s == "." || s == ".." || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}

func isSource(p string) bool {
	for _, ext := range Extensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// probe tries base as a file, with extensions, with JavaScript extensions
// swapped for their sources, and as a directory index.
func (r *Resolver) probe(base string) (string, bool) {
	base = Clean(base)
	if isSource(base) && r.fs.FileExists(base) {
		return base, true
	}
	if ext := path.Ext(base); ext != "" {
		if alts, ok := jsCounterparts[ext]; ok {
			stem := strings.TrimSuffix(base, ext)
			for _, alt := range alts {
				if r.fs.FileExists(stem + alt) {
					return stem + alt, true
				}
			}
		}
	}
	for _, ext := range Extensions {
		if r.fs.FileExists(base + ext) {
			return base + ext, true
		}
	}
	for _, ext := range Extensions {
		p := path.Join(base, "index"+ext)
		if r.fs.FileExists(p) {
			return p, true
		}
	}
	return "", false
}

type packageJSON struct {
	Types   string `json:"types"`
	Typings string `json:"typings"`
}

// nodeModule walks up from the importer looking in node_modules and
// node_modules/@types.
func (r *Resolver) nodeModule(from, specifier string) (string, bool) {
	pkg, sub := splitPackage(specifier)
	if pkg == "" {
		return "", false
	}
	typesPkg := "@types/" + strings.ReplaceAll(strings.TrimPrefix(pkg, "@"), "/", "__")

	dir := path.Dir(from)
	for {
		for _, name := range []string{pkg, typesPkg} {
			root := path.Join(dir, "node_modules", name)
			if p, ok := r.packageEntry(root, sub); ok {
				return p, true
			}
		}
		parent := path.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func (r *Resolver) packageEntry(root, sub string) (string, bool) {
	if sub != "" {
		return r.probe(path.Join(root, sub))
	}
	if data, err := r.fs.ReadFile(path.Join(root, "package.json")); err == nil {
		var pj packageJSON
		if json.Unmarshal(data, &pj) == nil {
			for _, entry := range []string{pj.Types, pj.Typings} {
				if entry == "" {
					continue
				}
				if p, ok := r.probe(path.Join(root, entry)); ok {
					return p, true
				}
			}
		}
	}
	return r.probe(path.Join(root, "index"))
}

// splitPackage splits "@scope/pkg/sub/path" into ("@scope/pkg", "sub/path").
func splitPackage(specifier string) (pkg, sub string) {
	parts := strings.Split(specifier, "/")
	n := 1
	if strings.HasPrefix(specifier, "@") {
		n = 2
	}
	if len(parts) < n || parts[0] == "" {
		return "", ""
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}
