package tsbundle

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jward/tsbundle/internal/script"
	"github.com/jward/tsbundle/internal/syntax"
)

// ErrNotExported is returned when Only names an export the entry lacks.
var ErrNotExported = errors.New("not exported")

// placeholderName names an anonymous default with no naming context.
const placeholderName = "DefaultExport"

type aliasExport struct {
	name string
	to   *node
}

// selection is the reachable part of the module graph in discovery order.
type selection struct {
	rs    *resolver
	diags *diagSink
	entry *Module

	order    []*node
	byDecl   map[*Declaration]*node
	reserved map[string]bool

	aliases     []aliasExport
	defaultNode *node
}

// selectSymbols walks breadth-first from the entry's exports. A
// declaration is visited once however many alias chains reach it, and the
// walk never re-enters a visited declaration, so reference cycles
// terminate. Display names are assigned once the walk is complete.
func selectSymbols(ctx context.Context, b *Bundler, rs *resolver, entry *Module, cfg *bundleConfig) (*selection, error) {
	s := &selection{
		rs:       rs,
		diags:    rs.diags,
		entry:    entry,
		byDecl:   make(map[*Declaration]*node),
		reserved: make(map[string]bool),
	}
	if err := s.roots(ctx, b.filter, cfg); err != nil {
		return nil, err
	}

	for i := 0; i < len(s.order); i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s.link(s.order[i])
	}

	s.assignNames(cfg)
	return s, nil
}

// entryNames lists the entry's export names: explicit exports in source
// order, then star-provided names sorted.
func (s *selection) entryNames() []string {
	names := append([]string(nil), s.entry.ExportOrder...)
	var starred []string
	for n := range s.rs.starExports(s.entry) {
		if _, explicit := s.entry.Exports[n]; !explicit {
			starred = append(starred, n)
		}
	}
	sort.Strings(starred)
	return append(names, starred...)
}

func (s *selection) roots(ctx context.Context, filter *script.Filter, cfg *bundleConfig) error {
	names := s.entryNames()
	if cfg.only != "" {
		found := false
		for _, n := range names {
			if n == cfg.only {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("tsbundle: %s: %q: %w", s.entry.Path, cfg.only, ErrNotExported)
		}
		names = []string{cfg.only}
	}

	for _, name := range names {
		t, err := s.rs.exported(s.entry, name)
		if err != nil {
			s.diags.add(DiagCircularAlias, s.entry.Path, "", name, "%v", err)
			continue
		}
		if t.ns != nil {
			s.diags.add(DiagNamespaceExport, s.entry.Path, "", name,
				"%q re-exports the namespace of %s; only its own exports can be bundled", name, t.ns.Path)
			continue
		}
		if t.decl == nil {
			s.diags.add(DiagMissingExport, s.entry.Path, "", name,
				"export %q does not resolve to a declaration", name)
			continue
		}

		if filter != nil {
			keep, err := filter.Keep(ctx, script.Root{
				Name:     name,
				Declared: t.decl.Name,
				Kind:     string(t.decl.Kind),
				Path:     t.decl.Module.Path,
			})
			if err != nil {
				return fmt.Errorf("tsbundle: root filter: %w", err)
			}
			if !keep {
				continue
			}
		}

		n, ok := s.byDecl[t.decl]
		if !ok {
			n = &node{decl: t.decl, root: true}
			s.byDecl[t.decl] = n
			s.order = append(s.order, n)
		}
		n.root = true
		n.entryNames = append(n.entryNames, name)
		if name == syntax.DefaultName {
			s.defaultNode = n
		}
	}
	return nil
}

// assignNames gives every node its display name. Roots take their entry
// export names, then the remaining nodes their declared names in discovery
// order; the first holder of a name keeps it and later ones are suffixed
// with their file stem.
func (s *selection) assignNames(cfg *bundleConfig) {
	taken := make(map[string]bool)

	for _, n := range s.order {
		if !n.root {
			continue
		}
		want := s.rootName(n, cfg)
		n.name = s.claim(n, want, taken, false)
	}
	for _, n := range s.order {
		if !n.root {
			continue
		}
		for _, alias := range n.entryNames[1:] {
			if alias == syntax.DefaultName || alias == n.name || taken[alias] {
				continue
			}
			taken[alias] = true
			s.aliases = append(s.aliases, aliasExport{name: alias, to: n})
		}
	}
	for _, n := range s.order {
		if n.root {
			continue
		}
		want := n.decl.Name
		if n.decl.Anonymous() {
			want = placeholderName
			if n.hint != "" {
				want = n.hint
			}
		}
		n.name = s.claim(n, want, taken, true)
	}
}

func (s *selection) rootName(n *node, cfg *bundleConfig) string {
	if cfg.only != "" && cfg.as != "" {
		return cfg.as
	}
	name := n.entryNames[0]
	if name != syntax.DefaultName {
		return name
	}
	switch {
	case cfg.defaultName != "":
		return cfg.defaultName
	case !n.decl.Anonymous():
		return n.decl.Name
	}
	// An imported anonymous default keeps the name the entry bound it to.
	if eb := s.entry.Exports[syntax.DefaultName]; eb != nil && eb.Kind == ExportLocal {
		if _, imported := s.entry.Imports[eb.Local]; imported {
			if _, local := s.entry.Locals[eb.Local]; !local {
				return eb.Local
			}
		}
	}
	return placeholderName
}

// claim reserves want for n, or a disambiguated form of it.
func (s *selection) claim(n *node, want string, taken map[string]bool, avoidReserved bool) string {
	free := func(name string) bool {
		return !taken[name] && !(avoidReserved && s.reserved[name])
	}
	name := want
	if !free(name) {
		base := want + "_" + fileStem(n.decl.Module.Path)
		name = base
		for i := 2; !free(name); i++ {
			name = base + "_" + strconv.Itoa(i)
		}
		s.diags.add(DiagCollisionRename, n.decl.Module.Path, "", n.decl.Name,
			"%q emitted as %q", want, name)
	}
	taken[name] = true
	return name
}

// fileStem derives an identifier fragment from a module path: the base
// name without extensions, or the directory name for index files.
func fileStem(p string) string {
	base := path.Base(p)
	for _, ext := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "index" {
		if dir := path.Base(path.Dir(p)); dir != "." && dir != "/" {
			base = dir
		}
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '_' || r == '$',
			r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "module"
	}
	return b.String()
}
