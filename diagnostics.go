package tsbundle

import (
	"fmt"
	"strings"
)

// DiagnosticKind names a class of resolution problem.
type DiagnosticKind string

const (
	// DiagUnresolvedImport: a specifier maps to no file. The references
	// that depend on it become unresolved leaves.
	DiagUnresolvedImport DiagnosticKind = "UnresolvedImport"
	// DiagCircularAlias: a re-export chain loops without reaching a
	// declaration.
	DiagCircularAlias DiagnosticKind = "CircularAlias"
	// DiagMissingExport: a module was found but does not export the name.
	DiagMissingExport DiagnosticKind = "MissingExport"
	// DiagAmbiguousStarExport: two `export *` sources provide distinct
	// symbols under one name, so neither is exported.
	DiagAmbiguousStarExport DiagnosticKind = "AmbiguousStarExport"
	// DiagCollisionRename: a symbol was emitted under a disambiguated name.
	DiagCollisionRename DiagnosticKind = "CollisionRenameApplied"
	// DiagNamespaceExport: an entry export binds a whole module namespace,
	// which has no single declaration to emit.
	DiagNamespaceExport DiagnosticKind = "NamespaceExportSkipped"
)

// Severity separates errors from informational notes.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityInfo  Severity = "info"
)

func (k DiagnosticKind) severity() Severity {
	switch k {
	case DiagAmbiguousStarExport, DiagCollisionRename, DiagNamespaceExport:
		return SeverityInfo
	}
	return SeverityError
}

// Diagnostic pinpoints one resolution problem: the module it was found
// in, the specifier involved (if any) and the symbol name.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	Severity  Severity       `json:"severity"`
	Module    string         `json:"module"`
	Specifier string         `json:"specifier,omitempty"`
	Symbol    string         `json:"symbol,omitempty"`
	Message   string         `json:"message"`
}

func (d Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(string(d.Kind))
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Module != "" {
		fmt.Fprintf(&b, " (in %s)", d.Module)
	}
	return b.String()
}

// CircularAliasError reports a re-export loop. Chain lists the
// (module, name) pairs in the order they were entered.
type CircularAliasError struct {
	Chain []Symbol
}

func (e *CircularAliasError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, s := range e.Chain {
		parts[i] = s.String()
	}
	return "circular alias: " + strings.Join(parts, " -> ")
}

// diagSink collects diagnostics, dropping exact duplicates.
type diagSink struct {
	list []Diagnostic
	seen map[Diagnostic]bool
}

func newDiagSink() *diagSink {
	return &diagSink{seen: make(map[Diagnostic]bool)}
}

func (s *diagSink) add(kind DiagnosticKind, module, specifier, symbol, format string, args ...any) {
	d := Diagnostic{
		Kind:      kind,
		Severity:  kind.severity(),
		Module:    module,
		Specifier: specifier,
		Symbol:    symbol,
		Message:   fmt.Sprintf(format, args...),
	}
	if s.seen[d] {
		return
	}
	s.seen[d] = true
	s.list = append(s.list, d)
}
