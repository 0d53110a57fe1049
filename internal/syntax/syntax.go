// Package syntax is the statement-level TypeScript front end. It parses a
// source file with tree-sitter and reduces it to top-level declarations,
// import directives and export directives, each declaration carrying the
// verbatim text slice and the type names it mentions.
package syntax

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Kind classifies a top-level declaration.
type Kind string

const (
	KindInterface        Kind = "interface"
	KindType             Kind = "type"
	KindEnum             Kind = "enum"
	KindClass            Kind = "class"
	KindFunction         Kind = "function"
	KindConst            Kind = "const"
	KindVariable         Kind = "variable"
	KindNamespace        Kind = "namespace"
	KindAnonymousDefault Kind = "anonymous-default"
)

// AnonForm describes the shape of an anonymous default export.
type AnonForm string

const (
	AnonNone       AnonForm = ""
	AnonClass      AnonForm = "class"
	AnonFunction   AnonForm = "function"
	AnonExpression AnonForm = "expression"
)

// DefaultName is the sentinel name given to anonymous default exports.
const DefaultName = "default"

// Ref is one type-reference occurrence inside a declaration's text.
// Parts holds the dotted path as written: ["Foo"] or ["NS", "Foo"].
type Ref struct {
	Parts []string `json:"parts"`
	Start int      `json:"start"`
	End   int      `json:"end"`
	Value bool     `json:"value,omitempty"` // typeof query or class extends
}

// Name returns the reference as written, e.g. "NS.Foo".
func (r Ref) Name() string {
	return strings.Join(r.Parts, ".")
}

// Decl is a top-level declaration. Offsets in NameStart, NameEnd and Refs
// index into Text. For anonymous class and function defaults NameStart ==
// NameEnd marks where a synthesized name is inserted.
type Decl struct {
	Name       string   `json:"name"`
	Kind       Kind     `json:"kind"`
	Exported   bool     `json:"exported,omitempty"`
	Default    bool     `json:"default,omitempty"`
	Anon       AnonForm `json:"anon,omitempty"`
	Text       string   `json:"text"`
	Doc        string   `json:"doc,omitempty"`
	NameStart  int      `json:"nameStart"`
	NameEnd    int      `json:"nameEnd"`
	Refs       []Ref    `json:"refs,omitempty"`
	TypeParams []string `json:"typeParams,omitempty"`
	Line       int      `json:"line"`
}

// ImportKind classifies an import binding.
type ImportKind string

const (
	ImportNamed      ImportKind = "named"
	ImportDefault    ImportKind = "default"
	ImportNamespace  ImportKind = "namespace"
	ImportSideEffect ImportKind = "side-effect"
)

// Import is one binding introduced by an import statement. Side-effect
// imports carry only Source.
type Import struct {
	Kind     ImportKind `json:"kind"`
	Local    string     `json:"local,omitempty"`
	Remote   string     `json:"remote,omitempty"`
	Source   string     `json:"source"`
	TypeOnly bool       `json:"typeOnly,omitempty"`
	Line     int        `json:"line"`
}

// ExportKind classifies an export directive.
type ExportKind string

const (
	ExportLocal     ExportKind = "local"      // export { a as b }, export default a
	ExportNamed     ExportKind = "named"      // export { a as b } from './m'
	ExportAll       ExportKind = "all"        // export * from './m'
	ExportNamespace ExportKind = "namespace"  // export * as ns from './m'
)

// Export is one export directive that is not an exported declaration.
// Exported declarations are flagged on Decl instead.
type Export struct {
	Kind     ExportKind `json:"kind"`
	Name     string     `json:"name,omitempty"`  // exported name
	Local    string     `json:"local,omitempty"` // local or remote name
	Source   string     `json:"source,omitempty"`
	TypeOnly bool       `json:"typeOnly,omitempty"`
	Line     int        `json:"line"`
}

// File is the statement-level view of one source file.
type File struct {
	Path    string   `json:"path"`
	Decls   []Decl   `json:"decls"`
	Imports []Import `json:"imports"`
	Exports []Export `json:"exports"`
}

// SyntaxError reports a file tree-sitter could not parse cleanly.
type SyntaxError struct {
	Path string
	Line int
	Col  int
	Near string
}

func (e *SyntaxError) Error() string {
	if e.Near != "" {
		return fmt.Sprintf("%s:%d:%d: syntax error near %q", e.Path, e.Line, e.Col, e.Near)
	}
	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line, e.Col)
}

// Grammars are initialized lazily; the cgo-backed language objects are
// shared by every parser.
var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"typescript": ts.GetLanguage(),
			"tsx":        tsx.GetLanguage(),
		}
	})
}

// extToGrammar maps file extensions to grammar names.
var extToGrammar = map[string]string{
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "tsx",
}

// Supported reports whether path has an extension this package can parse.
func Supported(p string) bool {
	_, ok := extToGrammar[strings.ToLower(path.Ext(p))]
	return ok
}

func grammarFor(p string) *sitter.Language {
	initGrammars()
	name, ok := extToGrammar[strings.ToLower(path.Ext(p))]
	if !ok {
		name = "typescript"
	}
	return grammars[name]
}

// Parse parses src and extracts its top-level structure. A parse tree that
// contains error or missing nodes is reported as a *SyntaxError; the caller's
// context bounds the parse.
func Parse(ctx context.Context, p string, src []byte) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammarFor(p))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("syntax: parse %s: %w", p, ctxErr)
		}
		return nil, fmt.Errorf("syntax: parse %s: %w", p, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxErrorAt(p, root, src)
	}

	x := &extractor{src: src, file: &File{Path: p}}
	x.program(root)
	return x.file, nil
}

// syntaxErrorAt locates the first error or missing node under n.
func syntaxErrorAt(p string, n *sitter.Node, src []byte) *SyntaxError {
	bad := firstErrorNode(n)
	if bad == nil {
		bad = n
	}
	pt := bad.StartPoint()
	near := bad.Content(src)
	if i := strings.IndexByte(near, '\n'); i >= 0 {
		near = near[:i]
	}
	if len(near) > 40 {
		near = near[:40]
	}
	return &SyntaxError{Path: p, Line: int(pt.Row) + 1, Col: int(pt.Column) + 1, Near: near}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || (!c.HasError() && !c.IsMissing()) {
			continue
		}
		if bad := firstErrorNode(c); bad != nil {
			return bad
		}
	}
	return nil
}
