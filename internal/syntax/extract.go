package syntax

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// extractor walks the program node of one parsed file.
type extractor struct {
	src  []byte
	file *File
}

func (x *extractor) text(n *sitter.Node) string {
	return n.Content(x.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// program visits top-level statements, attaching a directly preceding
// comment block to the statement that follows it.
func (x *extractor) program(root *sitter.Node) {
	docStart, docEnd := -1, -1
	for i := 0; i < int(root.ChildCount()); i++ {
		c := root.Child(i)
		if c == nil || !c.IsNamed() {
			continue
		}
		start, end := int(c.StartByte()), int(c.EndByte())
		if c.Type() == "comment" {
			if docStart >= 0 && adjacent(x.src[docEnd:start]) {
				docEnd = end
			} else {
				docStart, docEnd = start, end
			}
			continue
		}
		doc := ""
		if docStart >= 0 && adjacent(x.src[docEnd:start]) {
			doc = string(x.src[docStart:docEnd])
		}
		docStart, docEnd = -1, -1
		x.statement(c, doc)
	}
}

// adjacent reports whether gap separates two nodes by whitespace and at most
// one line break.
func adjacent(gap []byte) bool {
	if len(strings.TrimSpace(string(gap))) != 0 {
		return false
	}
	return strings.Count(string(gap), "\n") <= 1
}

func (x *extractor) statement(n *sitter.Node, doc string) {
	switch n.Type() {
	case "import_statement":
		x.importStatement(n)
	case "export_statement":
		x.exportStatement(n, doc)
	case "expression_statement":
		// `namespace X {}` at top level parses as an expression statement.
		if inner := n.NamedChild(0); inner != nil && inner.Type() == "internal_module" {
			x.declaration(n, inner, doc, false, false)
		}
	default:
		x.declaration(n, n, doc, false, false)
	}
}

// hasToken reports whether n has a direct anonymous child of the given type.
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.Type() == typ {
			return c
		}
	}
	return nil
}

// unquote strips the quotes of a string literal node.
func (x *extractor) unquote(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	s := x.text(n)
	if len(s) >= 2 {
		switch s[0] {
		case '\'', '"', '`':
			return s[1 : len(s)-1]
		}
	}
	return s
}

func (x *extractor) importStatement(n *sitter.Node) {
	source := x.unquote(n.ChildByFieldName("source"))
	typeOnly := hasToken(n, "type")
	ln := line(n)

	if req := childOfType(n, "import_require_clause"); req != nil {
		// import x = require('m')
		id := childOfType(req, "identifier")
		src := x.unquote(req.ChildByFieldName("source"))
		if src == "" {
			src = x.unquote(childOfType(req, "string"))
		}
		if id != nil && src != "" {
			x.file.Imports = append(x.file.Imports, Import{
				Kind: ImportDefault, Local: x.text(id), Remote: DefaultName, Source: src, TypeOnly: typeOnly, Line: ln,
			})
		}
		return
	}

	clause := childOfType(n, "import_clause")
	if clause == nil {
		if source != "" {
			x.file.Imports = append(x.file.Imports, Import{Kind: ImportSideEffect, Source: source, Line: ln})
		}
		return
	}

	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "identifier":
			x.file.Imports = append(x.file.Imports, Import{
				Kind: ImportDefault, Local: x.text(c), Remote: DefaultName, Source: source, TypeOnly: typeOnly, Line: ln,
			})
		case "namespace_import":
			if id := childOfType(c, "identifier"); id != nil {
				x.file.Imports = append(x.file.Imports, Import{
					Kind: ImportNamespace, Local: x.text(id), Source: source, TypeOnly: typeOnly, Line: ln,
				})
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				spec := c.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				remote := x.unquote(name)
				local := remote
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = x.text(alias)
				}
				kind := ImportNamed
				if remote == DefaultName {
					kind = ImportDefault
				}
				x.file.Imports = append(x.file.Imports, Import{
					Kind: kind, Local: local, Remote: remote, Source: source,
					TypeOnly: typeOnly || hasToken(spec, "type"), Line: ln,
				})
			}
		}
	}
}

func (x *extractor) exportStatement(n *sitter.Node, doc string) {
	isDefault := hasToken(n, "default")
	typeOnly := hasToken(n, "type")
	source := x.unquote(n.ChildByFieldName("source"))
	ln := line(n)

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		x.declaration(decl, decl, doc, true, isDefault)
		return
	}

	if isDefault {
		if value := n.ChildByFieldName("value"); value != nil {
			x.defaultValue(value, doc, ln)
		}
		return
	}

	if hasToken(n, "=") {
		// export = x behaves as the module's default export.
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "comment" {
				continue
			}
			x.defaultValue(c, doc, ln)
			break
		}
		return
	}

	if clause := childOfType(n, "export_clause"); clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			spec := clause.NamedChild(i)
			if spec.Type() != "export_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			local := x.unquote(nameNode)
			exported := local
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = x.unquote(alias)
			}
			e := Export{
				Kind: ExportLocal, Name: exported, Local: local,
				TypeOnly: typeOnly || hasToken(spec, "type"), Line: ln,
			}
			if source != "" {
				e.Kind = ExportNamed
				e.Source = source
			}
			x.file.Exports = append(x.file.Exports, e)
		}
		return
	}

	if ns := childOfType(n, "namespace_export"); ns != nil && source != "" {
		if id := ns.NamedChild(0); id != nil {
			x.file.Exports = append(x.file.Exports, Export{
				Kind: ExportNamespace, Name: x.unquote(id), Source: source, TypeOnly: typeOnly, Line: ln,
			})
		}
		return
	}

	if hasToken(n, "*") && source != "" {
		if hasToken(n, "as") {
			if id := childOfType(n, "identifier"); id != nil {
				x.file.Exports = append(x.file.Exports, Export{
					Kind: ExportNamespace, Name: x.text(id), Source: source, TypeOnly: typeOnly, Line: ln,
				})
				return
			}
		}
		x.file.Exports = append(x.file.Exports, Export{Kind: ExportAll, Source: source, TypeOnly: typeOnly, Line: ln})
	}
}

// defaultValue handles `export default <expr>`.
func (x *extractor) defaultValue(value *sitter.Node, doc string, ln int) {
	switch value.Type() {
	case "identifier":
		x.file.Exports = append(x.file.Exports, Export{Kind: ExportLocal, Name: DefaultName, Local: x.text(value), Line: ln})
		return
	case "class":
		if value.ChildByFieldName("name") != nil {
			x.namedDecl(value, value, KindClass, doc, true, true)
			return
		}
		x.anonymous(value, AnonClass, []string{"class"}, doc)
		return
	case "function", "function_expression", "generator_function":
		if value.ChildByFieldName("name") != nil {
			x.namedDecl(value, value, KindFunction, doc, true, true)
			return
		}
		x.anonymous(value, AnonFunction, []string{"function", "*"}, doc)
		return
	case "parenthesized_expression":
		if inner := value.NamedChild(0); inner != nil && inner.Type() == "identifier" {
			x.defaultValue(inner, doc, ln)
			return
		}
	}
	x.anonymous(value, AnonExpression, nil, doc)
}

// anonymous records an anonymous default export. For class and function
// forms the name insertion point follows the last of the given keywords.
func (x *extractor) anonymous(n *sitter.Node, form AnonForm, keywords []string, doc string) {
	d := Decl{
		Name:     DefaultName,
		Kind:     KindAnonymousDefault,
		Exported: true,
		Default:  true,
		Anon:     form,
		Text:     x.text(n),
		Doc:      doc,
		Line:     line(n),
	}
	if form == AnonExpression {
		x.file.Decls = append(x.file.Decls, d)
		return
	}
	insert := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.IsNamed() {
			break
		}
		for _, kw := range keywords {
			if c.Type() == kw {
				insert = int(c.EndByte() - n.StartByte())
			}
		}
	}
	d.NameStart, d.NameEnd = insert, insert
	w := newRefWalker(x, n.StartByte(), 0, nil)
	w.walk(n)
	d.Refs, d.TypeParams = w.result()
	x.file.Decls = append(x.file.Decls, d)
}

// declaration records a declaration statement. textNode spans the emitted
// text; declNode is the structural node (they differ for `declare` forms).
func (x *extractor) declaration(textNode, declNode *sitter.Node, doc string, exported, isDefault bool) {
	switch declNode.Type() {
	case "interface_declaration":
		x.namedDecl(textNode, declNode, KindInterface, doc, exported, isDefault)
	case "type_alias_declaration":
		x.namedDecl(textNode, declNode, KindType, doc, exported, isDefault)
	case "enum_declaration":
		x.namedDecl(textNode, declNode, KindEnum, doc, exported, isDefault)
	case "class_declaration", "abstract_class_declaration", "class":
		x.namedDecl(textNode, declNode, KindClass, doc, exported, isDefault)
	case "function_declaration", "function_signature", "generator_function_declaration":
		x.namedDecl(textNode, declNode, KindFunction, doc, exported, isDefault)
	case "internal_module", "module":
		if name := declNode.ChildByFieldName("name"); name != nil && name.Type() != "string" {
			x.namedDecl(textNode, declNode, KindNamespace, doc, exported, isDefault)
		}
	case "lexical_declaration", "variable_declaration":
		x.variables(textNode, declNode, doc, exported)
	case "ambient_declaration":
		for i := 0; i < int(declNode.NamedChildCount()); i++ {
			inner := declNode.NamedChild(i)
			if inner.Type() == "comment" {
				continue
			}
			x.declaration(textNode, inner, doc, exported, isDefault)
			return
		}
	case "expression_statement":
		if inner := declNode.NamedChild(0); inner != nil && inner.Type() == "internal_module" {
			x.declaration(textNode, inner, doc, exported, isDefault)
		}
	}
}

func (x *extractor) namedDecl(textNode, declNode *sitter.Node, kind Kind, doc string, exported, isDefault bool) {
	name := declNode.ChildByFieldName("name")
	if name == nil {
		return
	}
	base := textNode.StartByte()
	d := Decl{
		Name:      x.text(name),
		Kind:      kind,
		Exported:  exported,
		Default:   isDefault,
		Text:      x.text(textNode),
		Doc:       doc,
		NameStart: int(name.StartByte() - base),
		NameEnd:   int(name.EndByte() - base),
		Line:      line(textNode),
	}
	w := newRefWalker(x, base, 0, name)
	w.walk(declNode)
	d.Refs, d.TypeParams = w.result()
	x.file.Decls = append(x.file.Decls, d)
}

// variables records one Decl per declarator. A statement with several
// declarators is split, each piece repeating the statement's keyword prefix.
func (x *extractor) variables(textNode, declNode *sitter.Node, doc string, exported bool) {
	var declarators []*sitter.Node
	for i := 0; i < int(declNode.NamedChildCount()); i++ {
		c := declNode.NamedChild(i)
		if c.Type() == "variable_declarator" {
			declarators = append(declarators, c)
		}
	}
	if len(declarators) == 0 {
		return
	}
	kind := KindVariable
	if first := declNode.Child(0); first != nil && first.Type() == "const" {
		kind = KindConst
	}

	if len(declarators) == 1 {
		if name := declarators[0].ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			x.namedDecl(textNode, declarators[0], kind, doc, exported, false)
		}
		return
	}

	prefix := string(x.src[textNode.StartByte():declarators[0].StartByte()])
	for i, dc := range declarators {
		name := dc.ChildByFieldName("name")
		if name == nil || name.Type() != "identifier" {
			continue
		}
		base := dc.StartByte()
		d := Decl{
			Name:      x.text(name),
			Kind:      kind,
			Exported:  exported,
			Text:      prefix + x.text(dc) + ";",
			NameStart: len(prefix) + int(name.StartByte()-base),
			NameEnd:   len(prefix) + int(name.EndByte()-base),
			Line:      line(dc),
		}
		if i == 0 {
			d.Doc = doc
		}
		w := newRefWalker(x, base, len(prefix), name)
		w.walk(dc)
		d.Refs, d.TypeParams = w.result()
		x.file.Decls = append(x.file.Decls, d)
	}
}
