package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"

	"github.com/jward/tsbundle"
)

var (
	flagBatchConfig string
	flagOutDir      string
	flagPruneCache  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [entry[:Type[:Alias]]...]",
	Short: "Bundle several entries in one run",
	Long: `Bundles each entry into its own file under --out-dir, sharing parsed modules between them.
Entries come from arguments of the form path, path:Type or path:Type:Alias, or from a TOML file:

  out_dir = "dist"

  [[entry]]
  path = "src/index.ts"
  type = "User"
  alias = "ApiUser"
  output = "user.d.ts"`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&flagBatchConfig, "config", "c", "", "TOML file listing the entries")
	batchCmd.Flags().StringVar(&flagOutDir, "out-dir", "", "directory the bundles are written to (default: out_dir from the config, else .)")
	batchCmd.Flags().BoolVar(&flagPreserveDefault, "preserve-default", false, "re-emit each entry's default export")
	batchCmd.Flags().StringVar(&flagDefaultName, "default-name", "", "name for each entry's default export")
	batchCmd.Flags().BoolVar(&flagPruneCache, "prune-cache", false, "drop --cache rows for files that no longer exist before bundling")
}

// batchFile is the TOML layout of a batch config.
type batchFile struct {
	OutDir  string       `toml:"out_dir"`
	Entries []batchEntry `toml:"entry"`
}

type batchEntry struct {
	Path   string `toml:"path"`
	Type   string `toml:"type"`
	Alias  string `toml:"alias"`
	Output string `toml:"output"`
}

// loadBatchFile reads a batch config. Entry paths are relative to the
// config's directory.
func loadBatchFile(p string) (*batchFile, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading batch config: %w", err)
	}
	bf := &batchFile{}
	if err := toml.Unmarshal(data, bf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}
	dir := filepath.Dir(p)
	for i := range bf.Entries {
		if bf.Entries[i].Path == "" {
			return nil, fmt.Errorf("%s: entry %d has no path", p, i+1)
		}
		if !filepath.IsAbs(bf.Entries[i].Path) {
			bf.Entries[i].Path = filepath.Join(dir, bf.Entries[i].Path)
		}
	}
	if bf.OutDir != "" && !filepath.IsAbs(bf.OutDir) {
		bf.OutDir = filepath.Join(dir, bf.OutDir)
	}
	return bf, nil
}

// parseEntrySpec parses path[:Type[:Alias]]. A Windows drive letter is
// not taken for a separator.
func parseEntrySpec(spec string) (batchEntry, error) {
	prefix := ""
	if len(spec) >= 2 && spec[1] == ':' && filepath.VolumeName(spec[:2]) != "" {
		prefix, spec = spec[:2], spec[2:]
	}
	parts := strings.Split(spec, ":")
	if len(parts) > 3 || parts[0] == "" {
		return batchEntry{}, fmt.Errorf("invalid entry %q: want path[:Type[:Alias]]", prefix+spec)
	}
	e := batchEntry{Path: prefix + parts[0]}
	if len(parts) > 1 {
		e.Type = parts[1]
	}
	if len(parts) > 2 {
		e.Alias = parts[2]
	}
	return e, nil
}

// outputName picks the file an entry is written to: its explicit output,
// else the emitted type name, else the entry's base name.
func outputName(e batchEntry) string {
	switch {
	case e.Output != "":
		return e.Output
	case e.Alias != "":
		return e.Alias + ".d.ts"
	case e.Type != "":
		return e.Type + ".d.ts"
	}
	base := filepath.Base(e.Path)
	for _, ext := range []string{".d.ts", ".ts", ".tsx", ".mts", ".cts"} {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	return base + ".d.ts"
}

func runBatch(cmd *cobra.Command, args []string) error {
	var entries []batchEntry
	outDir := flagOutDir
	if flagBatchConfig != "" {
		bf, err := loadBatchFile(flagBatchConfig)
		if err != nil {
			return outputError("batch", err)
		}
		entries = append(entries, bf.Entries...)
		if outDir == "" {
			outDir = bf.OutDir
		}
	}
	for _, a := range args {
		e, err := parseEntrySpec(a)
		if err != nil {
			return outputError("batch", err)
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return outputError("batch", fmt.Errorf("no entries: pass entry arguments or --config"))
	}
	if outDir == "" {
		outDir = "."
	}

	jobs := make([]tsbundle.Entry, 0, len(entries))
	for _, e := range entries {
		p, err := resolveFilePath(e.Path)
		if err != nil {
			return outputError("batch", err)
		}
		jobs = append(jobs, tsbundle.Entry{
			Path:  p,
			Type:  e.Type,
			Alias: e.Alias,
			Name:  filepath.Join(outDir, outputName(e)),
		})
	}

	b, err := newBundler(filepath.Dir(jobs[0].Path))
	if err != nil {
		return outputError("batch", err)
	}
	defer b.Close()

	if flagPruneCache {
		n, err := b.PruneCache()
		if err != nil {
			return outputError("batch", err)
		}
		logVerbose("cache: pruned %d file(s)", n)
	}

	results, batchErr := b.BundleBatch(context.Background(), jobs, bundleOptions()...)

	out := make([]CLIBundle, 0, len(results))
	for _, r := range results {
		cb := CLIBundle{Entry: r.Entry.Path, Output: r.Entry.Name, Diagnostics: []tsbundle.Diagnostic{}}
		if r.Err != nil {
			cb.Error = r.Err.Error()
			out = append(out, cb)
			continue
		}
		if err := writeOutput(r.Entry.Name, r.Result.Text); err != nil {
			cb.Error = err.Error()
			if batchErr == nil {
				batchErr = err
			}
		}
		if r.Result.Diagnostics != nil {
			cb.Diagnostics = r.Result.Diagnostics
		}
		cb.Stats = toCLIStats(r.Result.Stats)
		out = append(out, cb)

		printDiagnostics(os.Stderr, r.Result.Diagnostics)
		if flagFormat == "text" {
			printSummary(os.Stderr, r.Result, r.Entry.Name)
		}
	}

	if err := outputResult(CLIResult{Command: "batch", Results: out}); err != nil {
		return err
	}
	if batchErr != nil {
		errorHandled = true
		return batchErr
	}
	return nil
}
