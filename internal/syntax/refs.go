package syntax

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// refWalker collects type references inside one declaration. Offsets are
// computed relative to base and then moved by shift, so a declarator split
// out of a multi-declarator statement can carry its own prefix.
//
// Type parameters are scoped: a name bound by a generic signature, a mapped
// type key or an infer clause hides references only inside the node that
// binds it.
type refWalker struct {
	x      *extractor
	base   uint32
	shift  int
	skip   *sitter.Node
	refs   []Ref
	params []string
	seen   map[string]bool
	scopes []map[string]bool
}

func newRefWalker(x *extractor, base uint32, shift int, skip *sitter.Node) *refWalker {
	return &refWalker{
		x: x, base: base, shift: shift, skip: skip,
		seen:   map[string]bool{},
		scopes: []map[string]bool{{}},
	}
}

func (w *refWalker) offset(b uint32) int {
	return int(b-w.base) + w.shift
}

func (w *refWalker) isSkip(n *sitter.Node) bool {
	return w.skip != nil && n.StartByte() == w.skip.StartByte() && n.EndByte() == w.skip.EndByte()
}

func (w *refWalker) add(n *sitter.Node, parts []string, value bool) {
	w.refs = append(w.refs, Ref{
		Parts: parts,
		Start: w.offset(n.StartByte()),
		End:   w.offset(n.EndByte()),
		Value: value,
	})
}

// param binds name in the innermost scope.
func (w *refWalker) param(name string) {
	if name == "" {
		return
	}
	w.scopes[len(w.scopes)-1][name] = true
	if w.seen[name] {
		return
	}
	w.seen[name] = true
	w.params = append(w.params, name)
}

func (w *refWalker) bound(name string) bool {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if w.scopes[i][name] {
			return true
		}
	}
	return false
}

// opensScope reports whether n binds type names for its whole subtree:
// generic declarations and signatures, and mapped type members.
func opensScope(n *sitter.Node) bool {
	switch n.Type() {
	case "index_signature":
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "type_parameters" {
			return true
		}
	}
	return false
}

// declareTypeParameters binds the names of n's type parameter list up
// front, so constraints may refer to later parameters.
func (w *refWalker) declareTypeParameters(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		tps := n.NamedChild(i)
		if tps.Type() != "type_parameters" {
			continue
		}
		for j := 0; j < int(tps.NamedChildCount()); j++ {
			tp := tps.NamedChild(j)
			if tp.Type() != "type_parameter" {
				continue
			}
			if name := tp.ChildByFieldName("name"); name != nil {
				w.param(w.x.text(name))
			}
		}
	}
}

func (w *refWalker) walk(n *sitter.Node) {
	if n == nil || w.isSkip(n) {
		return
	}
	if opensScope(n) {
		w.scopes = append(w.scopes, map[string]bool{})
		defer func() { w.scopes = w.scopes[:len(w.scopes)-1] }()
		w.declareTypeParameters(n)
	}
	switch n.Type() {
	case "type_identifier":
		if name := w.x.text(n); !w.bound(name) {
			w.add(n, []string{name}, false)
		}
		return
	case "nested_type_identifier":
		w.add(n, splitDotted(w.x.text(n)), false)
		return
	case "type_parameter":
		w.children(n, n.ChildByFieldName("name"))
		return
	case "mapped_type_clause":
		name := n.ChildByFieldName("name")
		if name == nil {
			name = n.NamedChild(0)
		}
		if name != nil {
			w.param(w.x.text(name))
		}
		w.children(n, name)
		return
	case "infer_type":
		var name *sitter.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "type_identifier" {
				name = c
				break
			}
		}
		if name != nil {
			w.param(w.x.text(name))
		}
		w.children(n, name)
		return
	case "conditional_type":
		// infer names are visible in the true branch only.
		alt := n.ChildByFieldName("alternative")
		w.scopes = append(w.scopes, map[string]bool{})
		w.children(n, alt)
		w.scopes = w.scopes[:len(w.scopes)-1]
		w.walk(alt)
		return
	case "type_query":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if parts := w.x.dotted(c); parts != nil {
				w.add(c, parts, true)
				continue
			}
			w.walk(c)
		}
		return
	case "extends_clause":
		// Class heritage names a value, optionally with type arguments.
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if parts := w.x.dotted(c); parts != nil {
				w.add(c, parts, true)
				continue
			}
			w.walk(c)
		}
		return
	case "comment", "string", "template_string", "number", "regex":
		return
	}
	w.children(n, nil)
}

func (w *refWalker) children(n, except *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if except != nil && c.StartByte() == except.StartByte() && c.EndByte() == except.EndByte() {
			continue
		}
		w.walk(c)
	}
}

// result returns the collected references and every type parameter name
// bound anywhere in the declaration.
func (w *refWalker) result() ([]Ref, []string) {
	return w.refs, w.params
}

// dotted returns the parts of an identifier or a chain of property accesses
// on identifiers, or nil for any other expression.
func (x *extractor) dotted(n *sitter.Node) []string {
	switch n.Type() {
	case "identifier":
		return []string{x.text(n)}
	case "member_expression":
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return nil
		}
		parts := x.dotted(obj)
		if parts == nil {
			return nil
		}
		return append(parts, x.text(prop))
	}
	return nil
}

func splitDotted(s string) []string {
	parts := strings.Split(s, ".")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
