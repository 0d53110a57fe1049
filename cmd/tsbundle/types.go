package main

import (
	"time"

	"github.com/jward/tsbundle"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIBundle is the JSON form of one bundle.
type CLIBundle struct {
	Entry       string                `json:"entry"`
	Output      string                `json:"output,omitempty"`
	Text        string                `json:"text,omitempty"`
	Diagnostics []tsbundle.Diagnostic `json:"diagnostics"`
	Stats       CLIStats              `json:"stats"`
	Error       string                `json:"error,omitempty"`
}

// CLIStats mirrors tsbundle.Stats with a readable duration.
type CLIStats struct {
	Modules   int    `json:"modules"`
	Parsed    int    `json:"parsed"`
	CacheHits int    `json:"cache_hits"`
	StoreHits int    `json:"store_hits"`
	Emitted   int    `json:"emitted"`
	Duration  string `json:"duration"`
}

func toCLIStats(s tsbundle.Stats) CLIStats {
	return CLIStats{
		Modules:   s.Modules,
		Parsed:    s.Parsed,
		CacheHits: s.CacheHits,
		StoreHits: s.StoreHits,
		Emitted:   s.Emitted,
		Duration:  s.Duration.Round(time.Millisecond).String(),
	}
}

// CLIGraphNode is a JSON-friendly graph node.
type CLIGraphNode struct {
	Name     string   `json:"name"`
	Declared string   `json:"declared"`
	Kind     string   `json:"kind"`
	File     string   `json:"file"`
	Depth    int      `json:"depth"`
	Root     bool     `json:"root,omitempty"`
	Exports  []string `json:"exports,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Via      string   `json:"via,omitempty"`
	Deps     []string `json:"deps,omitempty"`
}

func toCLIGraph(g *tsbundle.Graph) []CLIGraphNode {
	deps := make(map[string][]string)
	for _, e := range g.Edges {
		deps[e.From] = append(deps[e.From], e.To)
	}
	out := make([]CLIGraphNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, toCLIGraphNode(n, deps[n.Name]))
	}
	return out
}

func toCLIGraphNode(n tsbundle.GraphNode, deps []string) CLIGraphNode {
	return CLIGraphNode{
		Name:     n.Name,
		Declared: n.Declared,
		Kind:     n.Kind,
		File:     n.Path,
		Depth:    n.Depth,
		Root:     n.Root,
		Exports:  n.Exports,
		Parent:   n.Parent,
		Via:      n.Via,
		Deps:     deps,
	}
}
