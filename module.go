package tsbundle

import (
	"errors"
	"sort"

	"github.com/jward/tsbundle/internal/pathres"
	"github.com/jward/tsbundle/internal/syntax"
)

// Symbol is the canonical identity of a bundlable entity: the module that
// declares it and the name it is declared under there. Anonymous default
// exports use the name "default".
type Symbol struct {
	Path string
	Name string
}

func (s Symbol) String() string {
	return s.Path + "#" + s.Name
}

// Declaration is a named top-level construct of one module. Declarations
// that merge under one name (function overloads, interface merging) share
// one Declaration with several parts in source order.
type Declaration struct {
	Module *Module
	Name   string
	Kind   syntax.Kind
	Anon   syntax.AnonForm
	Parts  []*syntax.Decl
}

// Symbol returns the declaration's canonical identity.
func (d *Declaration) Symbol() Symbol {
	return Symbol{Path: d.Module.Path, Name: d.Name}
}

// Anonymous reports whether the declaration is a nameless default export.
func (d *Declaration) Anonymous() bool {
	return d.Kind == syntax.KindAnonymousDefault
}

// ImportBinding is one local name introduced by an import.
type ImportBinding struct {
	Local     string
	Remote    string
	Kind      syntax.ImportKind
	Specifier string
	Target    string // canonical path; empty when the specifier did not resolve
	TypeOnly  bool
	Line      int
}

// ExportKind classifies an ExportBinding.
type ExportKind int

const (
	// ExportLocal points at a name in the module's own scope.
	ExportLocal ExportKind = iota
	// ExportReexport points at a remote module and one of its export names.
	ExportReexport
	// ExportNamespace binds a remote module's whole export table.
	ExportNamespace
)

// ExportBinding is one explicitly exported name of a module.
type ExportBinding struct {
	Name      string
	Kind      ExportKind
	Local     string // ExportLocal
	Remote    string // ExportReexport
	Specifier string
	Target    string
	TypeOnly  bool
	Line      int
}

// StarExport is an `export * from` directive, expanded lazily.
type StarExport struct {
	Specifier string
	Target    string
	Line      int
}

// Module is one loaded source file with its symbol tables. Modules are
// immutable once built.
type Module struct {
	Path string

	Locals      map[string]*Declaration
	Decls       []*Declaration // source order
	Imports     map[string]*ImportBinding
	Exports     map[string]*ExportBinding
	ExportOrder []string
	Stars       []*StarExport

	// Deps lists resolved import and re-export targets, first use first.
	Deps []string
	// Unresolved records specifiers that mapped to no file.
	Unresolved map[string]*pathres.UnresolvedImportError
}

// buildModule constructs the symbol tables of one extracted file. resolve
// maps a specifier to a canonical path.
func buildModule(p string, f *syntax.File, resolve func(spec string) (string, error)) *Module {
	m := &Module{
		Path:       p,
		Locals:     make(map[string]*Declaration),
		Imports:    make(map[string]*ImportBinding),
		Exports:    make(map[string]*ExportBinding),
		Unresolved: make(map[string]*pathres.UnresolvedImportError),
	}

	targets := make(map[string]string)
	seenDep := make(map[string]bool)
	target := func(spec string) string {
		if t, ok := targets[spec]; ok {
			return t
		}
		t, err := resolve(spec)
		if err != nil {
			var ue *pathres.UnresolvedImportError
			if errors.As(err, &ue) {
				m.Unresolved[spec] = ue
			} else {
				m.Unresolved[spec] = &pathres.UnresolvedImportError{From: p, Specifier: spec}
			}
			t = ""
		}
		targets[spec] = t
		if t != "" && !seenDep[t] {
			seenDep[t] = true
			m.Deps = append(m.Deps, t)
		}
		return t
	}

	type ordered struct {
		line int
		name string
	}
	var order []ordered
	addExport := func(eb *ExportBinding) {
		if _, dup := m.Exports[eb.Name]; dup {
			return
		}
		m.Exports[eb.Name] = eb
		order = append(order, ordered{eb.Line, eb.Name})
	}

	for i := range f.Decls {
		d := &f.Decls[i]
		decl, ok := m.Locals[d.Name]
		if !ok {
			decl = &Declaration{Module: m, Name: d.Name, Kind: d.Kind, Anon: d.Anon}
			m.Locals[d.Name] = decl
			m.Decls = append(m.Decls, decl)
		}
		decl.Parts = append(decl.Parts, d)

		switch {
		case d.Default:
			addExport(&ExportBinding{Name: syntax.DefaultName, Kind: ExportLocal, Local: d.Name, Line: d.Line})
		case d.Exported:
			addExport(&ExportBinding{Name: d.Name, Kind: ExportLocal, Local: d.Name, Line: d.Line})
		}
	}

	for _, imp := range f.Imports {
		if imp.Kind == syntax.ImportSideEffect {
			// Side-effect imports still pull their file into the run.
			target(imp.Source)
			continue
		}
		if _, dup := m.Imports[imp.Local]; dup {
			continue
		}
		m.Imports[imp.Local] = &ImportBinding{
			Local:     imp.Local,
			Remote:    imp.Remote,
			Kind:      imp.Kind,
			Specifier: imp.Source,
			Target:    target(imp.Source),
			TypeOnly:  imp.TypeOnly,
			Line:      imp.Line,
		}
	}

	for _, e := range f.Exports {
		switch e.Kind {
		case syntax.ExportLocal:
			addExport(&ExportBinding{Name: e.Name, Kind: ExportLocal, Local: e.Local, TypeOnly: e.TypeOnly, Line: e.Line})
		case syntax.ExportNamed:
			addExport(&ExportBinding{
				Name: e.Name, Kind: ExportReexport, Remote: e.Local,
				Specifier: e.Source, Target: target(e.Source), TypeOnly: e.TypeOnly, Line: e.Line,
			})
		case syntax.ExportNamespace:
			addExport(&ExportBinding{
				Name: e.Name, Kind: ExportNamespace,
				Specifier: e.Source, Target: target(e.Source), TypeOnly: e.TypeOnly, Line: e.Line,
			})
		case syntax.ExportAll:
			m.Stars = append(m.Stars, &StarExport{Specifier: e.Source, Target: target(e.Source), Line: e.Line})
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].line < order[j].line })
	for _, o := range order {
		m.ExportOrder = append(m.ExportOrder, o.name)
	}
	return m
}
