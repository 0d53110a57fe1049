package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jward/tsbundle"
	"github.com/jward/tsbundle/internal/pathres"
	"github.com/jward/tsbundle/internal/script"
	"github.com/jward/tsbundle/internal/tsconfig"
)

var (
	flagFormat   string
	flagTSConfig string
	flagCacheDB  string
	flagFilter   string
	flagGlobals  []string
	flagWorkers  int
	flagVerbose  bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			printError(err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tsbundle",
	Short:         "Flatten TypeScript declarations into a single bundle",
	Long:          "tsbundle follows the exports of an entry module through imports, re-exports and path aliases and writes every reachable type declaration into one self-contained file.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyEnv(cmd.Flags()); err != nil {
			return err
		}
		return validateFormat(flagFormat)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagTSConfig, "tsconfig", "", "tsconfig.json to read paths/baseUrl from (default: nearest to the entry)")
	rootCmd.PersistentFlags().StringVar(&flagCacheDB, "cache", "", "SQLite extraction cache path (default: no persistent cache)")
	rootCmd.PersistentFlags().StringVar(&flagFilter, "filter", "", "Risor script deciding which entry exports become roots")
	rootCmd.PersistentFlags().StringSliceVar(&flagGlobals, "globals", nil, "ambient declaration files consulted for unresolved names")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "files loaded concurrently (default: number of CPUs)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "trace loading and cache decisions to stderr")

	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(whyCmd)
}

// envPrefix namespaces the environment variables that stand in for flags:
// --cache is read from TSBUNDLE_CACHE, --default-name from
// TSBUNDLE_DEFAULT_NAME.
const envPrefix = "TSBUNDLE_"

// applyEnv loads .env from the working directory and fills every flag the
// command line left unset from its TSBUNDLE_* variable.
func applyEnv(flags *pflag.FlagSet) error {
	_ = godotenv.Load()

	var firstErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}
		key := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		v, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if err := f.Value.Set(v); err != nil {
			firstErr = fmt.Errorf("%s: %w", key, err)
		}
	})
	return firstErr
}

// newBundler builds a Bundler from the persistent flags. The tsconfig is
// the one named by --tsconfig or the nearest one above entryDir.
func newBundler(entryDir string, extra ...tsbundle.Option) (*tsbundle.Bundler, error) {
	var opts []tsbundle.Option

	cfgPath := flagTSConfig
	if cfgPath == "" {
		cfgPath = findTSConfig(entryDir)
	}
	if cfgPath != "" {
		abs, err := filepath.Abs(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("resolving tsconfig path %q: %w", cfgPath, err)
		}
		cfg, err := tsconfig.Load(pathres.OSFileSystem{}, filepath.ToSlash(abs))
		if err != nil {
			return nil, fmt.Errorf("loading tsconfig: %w", err)
		}
		opts = append(opts, tsbundle.WithAliases(cfg.Aliases()), tsbundle.WithBaseURL(cfg.BaseURL))
		logVerbose("tsconfig: %s (%d alias(es))", abs, len(cfg.Paths))
	}

	if flagFilter != "" {
		f, err := script.Load(flagFilter, script.WithLogf(logStderr))
		if err != nil {
			return nil, err
		}
		opts = append(opts, tsbundle.WithRootFilter(f))
	}
	if flagCacheDB != "" {
		if err := os.MkdirAll(filepath.Dir(flagCacheDB), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(flagCacheDB), err)
		}
		opts = append(opts, tsbundle.WithCacheDB(flagCacheDB))
	}
	if len(flagGlobals) > 0 {
		opts = append(opts, tsbundle.WithGlobalFiles(flagGlobals...))
	}
	if flagWorkers > 0 {
		opts = append(opts, tsbundle.WithWorkers(flagWorkers))
	}
	if flagVerbose {
		opts = append(opts, tsbundle.WithLogf(logStderr))
	}
	opts = append(opts, extra...)

	b, err := tsbundle.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating bundler: %w", err)
	}
	return b, nil
}

// findTSConfig walks up from startDir looking for tsconfig.json, stopping
// at the repository root. Returns "" if none is found.
func findTSConfig(startDir string) string {
	dir := startDir
	for {
		p := filepath.Join(dir, "tsconfig.json")
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

func logStderr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func logVerbose(format string, args ...any) {
	if flagVerbose {
		logStderr(format, args...)
	}
}
