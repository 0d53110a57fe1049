package tsbundle

// Graph is the dependency graph of one bundle: every emitted declaration
// with the edges that pulled it in.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is an emitted declaration with its distance from the nearest
// root.
type GraphNode struct {
	Name     string   `json:"name"`     // display name in the bundle
	Declared string   `json:"declared"` // name in the defining module
	Kind     string   `json:"kind"`
	Path     string   `json:"path"`
	Depth    int      `json:"depth"` // BFS depth (0 = root)
	Root     bool     `json:"root,omitempty"`
	Exports  []string `json:"exports,omitempty"` // entry export names, roots only
	Parent   string   `json:"parent,omitempty"`  // display name of the discovering node
	Via      string   `json:"via,omitempty"`     // reference text that discovered it
}

// GraphEdge is one depends-on relation between display names. Several
// occurrences of the same reference collapse into one edge.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *selection) graph() *Graph {
	g := &Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	for _, n := range s.order {
		gn := GraphNode{
			Name:     n.name,
			Declared: n.decl.Name,
			Kind:     string(n.decl.Kind),
			Path:     n.decl.Module.Path,
			Depth:    n.depth,
			Root:     n.root,
			Exports:  n.entryNames,
			Via:      n.via,
		}
		if n.parent != nil {
			gn.Parent = n.parent.name
		}
		g.Nodes = append(g.Nodes, gn)

		seen := make(map[*node]bool)
		for _, e := range n.edges {
			if seen[e.to] {
				continue
			}
			seen[e.to] = true
			g.Edges = append(g.Edges, GraphEdge{From: n.name, To: e.to.name})
		}
	}
	return g
}

// Node returns the node with the given display name.
func (g *Graph) Node(name string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return GraphNode{}, false
}

// Why returns the discovery chain from a root to the named declaration,
// root first. It returns nil when no emitted declaration has that name.
func (g *Graph) Why(name string) []GraphNode {
	byName := make(map[string]GraphNode, len(g.Nodes))
	for _, n := range g.Nodes {
		byName[n.Name] = n
	}
	n, ok := byName[name]
	if !ok {
		return nil
	}
	chain := []GraphNode{n}
	for n.Parent != "" && len(chain) <= len(g.Nodes) {
		n = byName[n.Parent]
		chain = append(chain, n)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Dependents returns the display names of declarations that reference
// name directly.
func (g *Graph) Dependents(name string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.To == name && e.From != name {
			out = append(out, e.From)
		}
	}
	return out
}
