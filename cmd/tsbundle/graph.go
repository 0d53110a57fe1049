package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/tsbundle"
)

var graphCmd = &cobra.Command{
	Use:   "graph <entry>",
	Short: "Show the declarations a bundle would contain",
	Long:  "Lists every declaration reachable from the entry's exports with its display name, origin file, BFS depth and direct dependencies. Roots are marked with *.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := bundleGraph("graph", args[0])
		if err != nil {
			return err
		}
		return outputResult(CLIResult{Command: "graph", Results: toCLIGraph(g)})
	},
}

var whyCmd = &cobra.Command{
	Use:   "why <entry> <name>",
	Short: "Explain why a declaration is in the bundle",
	Long:  "Prints the chain of references from an entry export to the named declaration. <name> is the display name in the bundle.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := bundleGraph("why", args[0])
		if err != nil {
			return err
		}
		chain := g.Why(args[1])
		if chain == nil {
			return outputError("why", fmt.Errorf("%q is not in the bundle", args[1]))
		}
		nodes := make([]CLIGraphNode, 0, len(chain))
		for _, n := range chain {
			nodes = append(nodes, toCLIGraphNode(n, nil))
		}
		return outputResult(CLIResult{Command: "why", Results: nodes})
	},
}

func init() {
	graphCmd.Flags().StringVarP(&flagType, "type", "t", "", "restrict the roots to this exported type")
	whyCmd.Flags().StringVarP(&flagType, "type", "t", "", "restrict the roots to this exported type")
}

// bundleGraph runs a bundle of entry and returns its graph.
func bundleGraph(command, entry string) (*tsbundle.Graph, error) {
	entry, err := resolveFilePath(entry)
	if err != nil {
		return nil, outputError(command, err)
	}
	b, err := newBundler(filepath.Dir(entry))
	if err != nil {
		return nil, outputError(command, err)
	}
	defer b.Close()

	var opts []tsbundle.BundleOption
	if flagType != "" {
		opts = append(opts, tsbundle.Only(flagType))
	}
	res, err := b.Bundle(context.Background(), entry, opts...)
	if err != nil {
		return nil, outputError(command, fmt.Errorf("bundling %s: %w", entry, err))
	}
	return res.Graph, nil
}
