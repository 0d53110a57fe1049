package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/tsbundle"
)

var (
	flagOut             string
	flagType            string
	flagAs              string
	flagPreserveDefault bool
	flagDefaultName     string
	flagBanner          string
	flagStrict          bool
)

var bundleCmd = &cobra.Command{
	Use:   "bundle <entry>",
	Short: "Bundle the declarations reachable from an entry module",
	Long:  "Loads the entry module and everything it imports, selects the declarations reachable from its exports and writes them as one declaration file.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundle,
}

func init() {
	bundleCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output file (default: stdout)")
	bundleCmd.Flags().StringVarP(&flagType, "type", "t", "", "bundle only this exported type and what it references")
	bundleCmd.Flags().StringVar(&flagAs, "as", "", "emit the --type root under this name")
	bundleCmd.Flags().BoolVar(&flagPreserveDefault, "preserve-default", false, "re-emit the entry's default export as `export default <Name>;`")
	bundleCmd.Flags().StringVar(&flagDefaultName, "default-name", "", "name for the entry's default export")
	bundleCmd.Flags().StringVar(&flagBanner, "banner", "", "text prepended to the bundle")
	bundleCmd.Flags().BoolVar(&flagStrict, "strict", false, "fail when the bundle has error diagnostics")
}

// bundleOptions collects the per-bundle flags shared by bundle and batch.
func bundleOptions() []tsbundle.BundleOption {
	var opts []tsbundle.BundleOption
	if flagPreserveDefault {
		opts = append(opts, tsbundle.PreserveDefault(true))
	}
	if flagDefaultName != "" {
		opts = append(opts, tsbundle.DefaultAs(flagDefaultName))
	}
	return opts
}

func runBundle(cmd *cobra.Command, args []string) error {
	entry, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("bundle", err)
	}
	if flagAs != "" && flagType == "" {
		return outputError("bundle", fmt.Errorf("--as requires --type"))
	}

	var extra []tsbundle.Option
	if flagBanner != "" {
		extra = append(extra, tsbundle.WithBanner(flagBanner))
	}
	b, err := newBundler(filepath.Dir(entry), extra...)
	if err != nil {
		return outputError("bundle", err)
	}
	defer b.Close()

	opts := bundleOptions()
	if flagType != "" {
		opts = append(opts, tsbundle.Only(flagType), tsbundle.As(flagAs))
	}

	res, err := b.Bundle(context.Background(), entry, opts...)
	if err != nil {
		return outputError("bundle", fmt.Errorf("bundling %s: %w", entry, err))
	}

	if flagOut != "" {
		if err := writeOutput(flagOut, res.Text); err != nil {
			return outputError("bundle", err)
		}
	}

	printDiagnostics(os.Stderr, res.Diagnostics)
	if flagFormat == "text" {
		printSummary(os.Stderr, res, flagOut)
	}

	out := CLIBundle{
		Entry:       res.Entry,
		Output:      flagOut,
		Text:        res.Text,
		Diagnostics: res.Diagnostics,
		Stats:       toCLIStats(res.Stats),
	}
	if out.Diagnostics == nil {
		out.Diagnostics = []tsbundle.Diagnostic{}
	}
	if err := outputResult(CLIResult{Command: "bundle", Results: out}); err != nil {
		return err
	}

	if flagStrict && res.HasErrors() {
		errorHandled = true
		return fmt.Errorf("bundle had %d error diagnostic(s)", len(res.Errors()))
	}
	return nil
}

// writeOutput writes text to path, creating parent directories.
func writeOutput(path, text string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
