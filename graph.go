package tsbundle

import (
	"github.com/jward/tsbundle/internal/syntax"
)

// node is one selected declaration in the bundle graph.
type node struct {
	decl *Declaration
	name string // display name, assigned after traversal

	root       bool
	entryNames []string // entry export names, roots only
	hint       string   // importer's local name, anonymous defaults only

	depth  int
	parent *node
	via    string // reference text that first pulled this node in
	edges  []edge
}

// edge is one resolved reference occurrence: part and ref index into the
// source declaration, consumed counts the leading name parts that named the
// target.
type edge struct {
	part     int
	ref      int
	consumed int
	to       *node
}

// link resolves every reference of n in its declaring module's scope and
// records an edge per occurrence that reaches a declaration. Other
// references are leaves; the names they leave in the text are reserved so
// no bundled declaration can capture them.
func (s *selection) link(n *node) {
	m := n.decl.Module
	for pi, part := range n.decl.Parts {
		if part.Anon == syntax.AnonExpression {
			continue
		}
		for ri, ref := range part.Refs {
			t, k, err := s.rs.reference(m, ref.Parts)
			if err != nil {
				s.diags.add(DiagCircularAlias, m.Path, "", ref.Name(), "%v", err)
				s.reserved[ref.Parts[0]] = true
				continue
			}
			if t.decl == nil {
				s.reserved[ref.Parts[0]] = true
				continue
			}
			to := s.nodeFor(t.decl, n, ref, k)
			n.edges = append(n.edges, edge{part: pi, ref: ri, consumed: k, to: to})
		}
	}
}

// nodeFor returns the node for d, discovering it from parent if new.
func (s *selection) nodeFor(d *Declaration, parent *node, ref syntax.Ref, consumed int) *node {
	if n, ok := s.byDecl[d]; ok {
		return n
	}
	n := &node{
		decl:   d,
		depth:  parent.depth + 1,
		parent: parent,
		via:    ref.Name(),
	}
	if d.Anonymous() {
		if h := ref.Parts[consumed-1]; h != syntax.DefaultName {
			n.hint = h
		}
	}
	s.byDecl[d] = n
	s.order = append(s.order, n)
	return n
}
