package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatGraphText formats graph nodes as aligned columns.
func formatGraphText(w io.Writer, nodes []CLIGraphNode) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDECLARED\tKIND\tDEPTH\tFILE\tDEPS")
	for _, n := range nodes {
		name := n.Name
		if n.Root {
			name += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			name, n.Declared, n.Kind, n.Depth, n.File, strings.Join(n.Deps, ", "))
	}
	tw.Flush()
}

// formatChainText formats a why-chain, root first, one hop per line.
func formatChainText(w io.Writer, chain []CLIGraphNode) {
	for i, n := range chain {
		indent := strings.Repeat("  ", i)
		switch {
		case i == 0:
			fmt.Fprintf(w, "%s%s (%s, exported as %s)\n", indent, n.Name, n.File, strings.Join(n.Exports, ", "))
		default:
			fmt.Fprintf(w, "%s-> %s (%s, via %s)\n", indent, n.Name, n.File, n.Via)
		}
	}
}

// formatBundlesText formats bundle summaries as aligned columns.
func formatBundlesText(w io.Writer, bundles []CLIBundle) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tOUTPUT\tEMITTED\tDIAGNOSTICS\tSTATUS")
	for _, b := range bundles {
		status := "ok"
		if b.Error != "" {
			status = b.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			b.Entry, b.Output, b.Stats.Emitted, len(b.Diagnostics), status)
	}
	tw.Flush()
}

// outputResult writes result to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return outputResultText(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case CLIBundle:
		if v.Output == "" {
			io.WriteString(w, v.Text)
		}
	case []CLIBundle:
		formatBundlesText(w, v)
	case []CLIGraphNode:
		if result.Command == "why" {
			formatChainText(w, v)
		} else {
			formatGraphText(w, v)
		}
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputError reports err in the selected format and marks it handled.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "json" {
		_ = outputResult(CLIResult{Command: command, Error: err.Error()})
	} else {
		printError(err)
	}
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
