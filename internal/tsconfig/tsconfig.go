// Package tsconfig reads the module-resolution settings of a tsconfig.json:
// compilerOptions.baseUrl, compilerOptions.paths and the extends chain.
package tsconfig

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/jward/tsbundle/internal/pathres"
)

// Config is the merged result of a tsconfig.json and the files it extends.
type Config struct {
	Path    string
	BaseURL string              // absolute, empty when unset
	Paths   map[string][]string // alias pattern -> absolute target patterns
}

type rawConfig struct {
	Extends         json.RawMessage `json:"extends"`
	CompilerOptions struct {
		BaseURL *string             `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// Load reads the tsconfig at p and every config it extends. Later files in
// the chain (closer to p) override earlier ones.
func Load(fsys pathres.FileSystem, p string) (*Config, error) {
	cfg := &Config{Path: pathres.Clean(p)}
	if err := load(fsys, cfg.Path, cfg, map[string]bool{}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(fsys pathres.FileSystem, p string, cfg *Config, seen map[string]bool) error {
	if seen[p] {
		return fmt.Errorf("tsconfig: extends cycle at %s", p)
	}
	seen[p] = true

	data, err := fsys.ReadFile(p)
	if err != nil {
		return fmt.Errorf("tsconfig: read %s: %w", p, err)
	}
	// tsconfig files are JSONC: comments and trailing commas are allowed.
	std, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("tsconfig: parse %s: %w", p, err)
	}
	var raw rawConfig
	if err := json.Unmarshal(std, &raw); err != nil {
		return fmt.Errorf("tsconfig: decode %s: %w", p, err)
	}

	for _, parent := range extendsList(raw.Extends) {
		pp, ok := resolveExtends(fsys, p, parent)
		if !ok {
			return fmt.Errorf("tsconfig: %s extends %q: not found", p, parent)
		}
		if err := load(fsys, pp, cfg, seen); err != nil {
			return err
		}
	}

	dir := path.Dir(p)
	opts := raw.CompilerOptions
	if opts.BaseURL != nil {
		cfg.BaseURL = join(dir, *opts.BaseURL)
	}
	if opts.Paths != nil {
		// Targets resolve against baseUrl when one is in effect, else
		// against the file that declares them.
		base := cfg.BaseURL
		if base == "" {
			base = dir
		}
		cfg.Paths = make(map[string][]string, len(opts.Paths))
		for k, targets := range opts.Paths {
			abs := make([]string, 0, len(targets))
			for _, t := range targets {
				abs = append(abs, join(base, t))
			}
			cfg.Paths[k] = abs
		}
	}
	return nil
}

func join(dir, p string) string {
	if path.IsAbs(p) {
		return pathres.Clean(p)
	}
	return path.Join(dir, p)
}

// extendsList accepts the string and array forms of "extends".
func extendsList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if json.Unmarshal(raw, &one) == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		return many
	}
	return nil
}

func resolveExtends(fsys pathres.FileSystem, from, spec string) (string, bool) {
	var candidates []string
	if strings.HasPrefix(spec, ".") || path.IsAbs(spec) {
		base := join(path.Dir(from), spec)
		candidates = append(candidates, base, base+".json")
	} else {
		for dir := path.Dir(from); ; dir = path.Dir(dir) {
			base := path.Join(dir, "node_modules", spec)
			candidates = append(candidates, base, base+".json", path.Join(base, "tsconfig.json"))
			if path.Dir(dir) == dir {
				break
			}
		}
	}
	for _, c := range candidates {
		if fsys.FileExists(c) {
			return c, true
		}
	}
	return "", false
}

// Aliases converts Paths to an alias table, taking the first target of each
// pattern. Patterns without a wildcard map exactly.
func (c *Config) Aliases() pathres.AliasTable {
	out := pathres.AliasTable{}
	for k, targets := range c.Paths {
		if len(targets) == 0 {
			continue
		}
		out[k] = targets[0]
	}
	return out.Normalize()
}
