package tsbundle

import (
	"errors"
	"sort"

	"github.com/jward/tsbundle/internal/syntax"
)

// target is what a name resolves to: a declaration, a whole module
// namespace, or nothing (an unresolved leaf).
type target struct {
	decl *Declaration
	ns   *Module
}

func (t target) found() bool {
	return t.decl != nil || t.ns != nil
}

func (t target) same(o target) bool {
	switch {
	case t.decl != nil:
		return t.decl == o.decl
	case t.ns != nil:
		return o.ns != nil && t.ns.Path == o.ns.Path
	}
	return !o.found()
}

type memoEntry struct {
	t   target
	err error
}

// resolver follows import and re-export chains to origin symbols. Its
// memo tables live for one Bundle call.
type resolver struct {
	modules map[string]*Module
	globals []*Module
	diags   *diagSink

	memo     map[Symbol]memoEntry
	stars    map[string]map[string]target
	starBusy map[string]bool
}

func newResolver(modules map[string]*Module, globals []*Module, diags *diagSink) *resolver {
	return &resolver{
		modules:  modules,
		globals:  globals,
		diags:    diags,
		memo:     make(map[Symbol]memoEntry),
		stars:    make(map[string]map[string]target),
		starBusy: make(map[string]bool),
	}
}

// chain is the ordered visited set of one top-level resolution.
type chain struct {
	order []Symbol
	set   map[Symbol]bool
}

func newChain() *chain {
	return &chain{set: make(map[Symbol]bool)}
}

func (c *chain) enter(s Symbol) error {
	if c.set[s] {
		loop := append(append([]Symbol(nil), c.order...), s)
		return &CircularAliasError{Chain: loop}
	}
	c.set[s] = true
	c.order = append(c.order, s)
	return nil
}

func (c *chain) leave(s Symbol) {
	delete(c.set, s)
	c.order = c.order[:len(c.order)-1]
}

// exported resolves the export called name of m.
func (r *resolver) exported(m *Module, name string) (target, error) {
	return r.export(m, name, newChain())
}

func (r *resolver) export(m *Module, name string, c *chain) (target, error) {
	key := Symbol{Path: m.Path, Name: name}
	if e, ok := r.memo[key]; ok {
		return e.t, e.err
	}
	if err := c.enter(key); err != nil {
		return target{}, err
	}
	t, err := r.exportUncached(m, name, c)
	c.leave(key)

	// A circular error is only a property of this key when the loop
	// closes on it; otherwise an outer key owns the loop.
	var ce *CircularAliasError
	if err == nil || !errors.As(err, &ce) || ce.Chain[len(ce.Chain)-1] == key {
		r.memo[key] = memoEntry{t: t, err: err}
	}
	return t, err
}

func (r *resolver) exportUncached(m *Module, name string, c *chain) (target, error) {
	if eb, ok := m.Exports[name]; ok {
		switch eb.Kind {
		case ExportLocal:
			return r.local(m, eb.Local, c)
		case ExportReexport:
			tm := r.target(m, eb.Specifier, eb.Target, eb.Remote)
			if tm == nil {
				return target{}, nil
			}
			t, err := r.export(tm, eb.Remote, c)
			if err == nil && !t.found() {
				r.missing(tm, eb.Remote, m)
			}
			return t, err
		case ExportNamespace:
			tm := r.target(m, eb.Specifier, eb.Target, eb.Name)
			if tm == nil {
				return target{}, nil
			}
			return target{ns: tm}, nil
		}
	}
	if name == syntax.DefaultName {
		return target{}, nil
	}
	if t, ok := r.starExports(m)[name]; ok {
		return t, nil
	}
	return target{}, nil
}

// local resolves a name in m's own scope: declarations first, then
// imports, then ambient globals.
func (r *resolver) local(m *Module, name string, c *chain) (target, error) {
	if d, ok := m.Locals[name]; ok {
		return target{decl: d}, nil
	}
	if imp, ok := m.Imports[name]; ok {
		return r.importBinding(m, imp, c)
	}
	for _, g := range r.globals {
		if g == nil || g == m {
			continue
		}
		if d, ok := g.Locals[name]; ok {
			return target{decl: d}, nil
		}
	}
	return target{}, nil
}

func (r *resolver) importBinding(m *Module, imp *ImportBinding, c *chain) (target, error) {
	tm := r.target(m, imp.Specifier, imp.Target, imp.Local)
	if tm == nil {
		return target{}, nil
	}
	if imp.Kind == syntax.ImportNamespace {
		return target{ns: tm}, nil
	}
	remote := imp.Remote
	if imp.Kind == syntax.ImportDefault {
		remote = syntax.DefaultName
	}
	t, err := r.export(tm, remote, c)
	if err == nil && !t.found() {
		r.missing(tm, remote, m)
	}
	return t, err
}

// target returns the loaded module a specifier resolved to, recording an
// UnresolvedImport diagnostic when it did not.
func (r *resolver) target(from *Module, spec, path, symbol string) *Module {
	if path != "" {
		if tm, ok := r.modules[path]; ok {
			return tm
		}
	}
	if ue, ok := from.Unresolved[spec]; ok {
		r.diags.add(DiagUnresolvedImport, from.Path, spec, symbol, "%v", ue)
		return nil
	}
	r.diags.add(DiagUnresolvedImport, from.Path, spec, symbol,
		"cannot resolve %q", spec)
	return nil
}

func (r *resolver) missing(m *Module, name string, from *Module) {
	r.diags.add(DiagMissingExport, m.Path, "", name,
		"module does not export %q (imported by %s)", name, from.Path)
}

// exportNames lists every name m exports except default, explicit exports
// first in source order and star-provided names after them, sorted.
func (r *resolver) exportNames(m *Module) []string {
	var names []string
	for _, n := range m.ExportOrder {
		if n != syntax.DefaultName {
			names = append(names, n)
		}
	}
	var starred []string
	for n := range r.starExports(m) {
		if _, explicit := m.Exports[n]; !explicit {
			starred = append(starred, n)
		}
	}
	sort.Strings(starred)
	return append(names, starred...)
}

// starExports expands m's `export *` directives. A name provided by two
// sources that resolve to different symbols is ambiguous and dropped.
// Explicit exports of m shadow star-provided names. Star cycles stop at
// the module already being expanded.
func (r *resolver) starExports(m *Module) map[string]target {
	if s, ok := r.stars[m.Path]; ok {
		return s
	}
	if r.starBusy[m.Path] || len(m.Stars) == 0 {
		return nil
	}
	r.starBusy[m.Path] = true
	defer delete(r.starBusy, m.Path)

	out := make(map[string]target)
	ambiguous := make(map[string]bool)
	for _, star := range m.Stars {
		tm := r.target(m, star.Specifier, star.Target, "*")
		if tm == nil {
			continue
		}
		for _, name := range r.exportNames(tm) {
			if _, explicit := m.Exports[name]; explicit {
				continue
			}
			t, err := r.exported(tm, name)
			if err != nil || !t.found() {
				continue
			}
			if prev, ok := out[name]; ok {
				if !prev.same(t) {
					ambiguous[name] = true
				}
				continue
			}
			out[name] = t
		}
	}

	names := make([]string, 0, len(ambiguous))
	for n := range ambiguous {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		delete(out, n)
		r.diags.add(DiagAmbiguousStarExport, m.Path, "", n,
			"%q is exported by more than one `export *` source and is excluded", n)
	}

	r.stars[m.Path] = out
	return out
}

// reference resolves a possibly qualified name written in m. It returns
// the target and how many leading parts named it; the remaining parts are
// member accesses on a declared namespace or enum.
func (r *resolver) reference(m *Module, parts []string) (target, int, error) {
	t, err := r.local(m, parts[0], newChain())
	if err != nil || !t.found() {
		return t, 1, err
	}
	n := 1
	for n < len(parts) && t.ns != nil {
		next, err := r.exported(t.ns, parts[n])
		if err != nil {
			return target{}, n, err
		}
		if !next.found() {
			r.missing(t.ns, parts[n], m)
			return target{}, n, nil
		}
		t = next
		n++
	}
	return t, n, nil
}
