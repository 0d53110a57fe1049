package tsbundle

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/jward/tsbundle/internal/pathres"
	"github.com/jward/tsbundle/internal/script"
	"github.com/jward/tsbundle/internal/store"
)

// AliasTable maps path alias prefixes (e.g. "@utils") to directories.
type AliasTable = pathres.AliasTable

// FileSystem is the read-only file view a Bundler loads modules from.
type FileSystem = pathres.FileSystem

// RootFilter decides which entry exports become bundle roots.
type RootFilter = script.Filter

// Bundler produces flattened declaration bundles. A Bundler is safe for
// concurrent use; each Bundle call gets its own module map, memo tables and
// diagnostics, and only the module cache is shared between calls.
type Bundler struct {
	fs           pathres.FileSystem
	osFS         bool
	aliases      pathres.AliasTable
	baseURL      string
	nodeModules  bool
	resolver     *pathres.Resolver
	workers      int
	parseTimeout time.Duration
	cacheSize    int
	cache        *lru.Cache[string, *Module]
	flight       singleflight.Group
	cacheDB      string
	store        *store.Store
	filter       *script.Filter
	globalFiles  []string
	banner       string
	logf         func(format string, args ...any)
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithFileSystem sets where modules are read from (default: the host
// file system).
func WithFileSystem(fsys FileSystem) Option {
	return func(b *Bundler) {
		b.fs = fsys
		_, b.osFS = fsys.(pathres.OSFileSystem)
	}
}

// WithAliases sets the path alias table consulted for non-relative
// specifiers.
func WithAliases(t AliasTable) Option {
	return func(b *Bundler) {
		b.aliases = t
	}
}

// WithBaseURL sets the directory bare specifiers are tried against.
func WithBaseURL(dir string) Option {
	return func(b *Bundler) {
		b.baseURL = dir
	}
}

// WithNodeModules controls node_modules lookup for bare specifiers
// (default on).
func WithNodeModules(enabled bool) Option {
	return func(b *Bundler) {
		b.nodeModules = enabled
	}
}

// WithWorkers bounds the number of files loaded concurrently (default
// runtime.NumCPU()).
func WithWorkers(n int) Option {
	return func(b *Bundler) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithParseTimeout bounds each file's parse. An expired parse fails the
// bundle.
func WithParseTimeout(d time.Duration) Option {
	return func(b *Bundler) {
		b.parseTimeout = d
	}
}

// WithModuleCache sets how many parsed modules are kept in memory between
// Bundle calls (default 1024). Zero disables the cache.
func WithModuleCache(size int) Option {
	return func(b *Bundler) {
		b.cacheSize = size
	}
}

// WithCacheDB persists extractions in a SQLite database at path so
// unchanged files are not parsed again by later processes.
func WithCacheDB(path string) Option {
	return func(b *Bundler) {
		b.cacheDB = path
	}
}

// WithRootFilter evaluates f for every candidate root and drops the roots
// it rejects.
func WithRootFilter(f *RootFilter) Option {
	return func(b *Bundler) {
		b.filter = f
	}
}

// WithGlobalFiles loads ambient declaration files whose top-level
// declarations back references no module scope resolves.
func WithGlobalFiles(paths ...string) Option {
	return func(b *Bundler) {
		b.globalFiles = append(b.globalFiles, paths...)
	}
}

// WithBanner prepends text to every bundle.
func WithBanner(text string) Option {
	return func(b *Bundler) {
		b.banner = text
	}
}

// WithLogf routes load and cache tracing to fn.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(b *Bundler) {
		if fn != nil {
			b.logf = fn
		}
	}
}

// New creates a Bundler.
func New(opts ...Option) (*Bundler, error) {
	b := &Bundler{
		fs:          pathres.OSFileSystem{},
		osFS:        true,
		nodeModules: true,
		workers:     runtime.NumCPU(),
		cacheSize:   1024,
		logf:        func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(b)
	}

	// Module paths are absolute on the host file system, so relative alias
	// targets and baseURL must be too.
	if b.osFS {
		aliases := make(pathres.AliasTable, len(b.aliases))
		for k, v := range b.aliases {
			aliases[k] = b.canonical(v)
		}
		b.aliases = aliases
		if b.baseURL != "" {
			b.baseURL = b.canonical(b.baseURL)
		}
	}

	b.resolver = pathres.New(b.fs,
		pathres.WithAliases(b.aliases),
		pathres.WithBaseURL(b.baseURL),
		pathres.WithNodeModules(b.nodeModules),
	)

	if b.cacheSize > 0 {
		c, err := lru.New[string, *Module](b.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("tsbundle: module cache: %w", err)
		}
		b.cache = c
	}

	if b.cacheDB != "" {
		s, err := store.NewStore(b.cacheDB)
		if err != nil {
			return nil, fmt.Errorf("tsbundle: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("tsbundle: migrate: %w", err)
		}
		b.store = s
	}
	return b, nil
}

// Close releases the Bundler's database resources, if any.
func (b *Bundler) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

// PruneCache drops cached extractions of files that no longer exist and
// returns how many were removed. Without a cache database it is a no-op.
func (b *Bundler) PruneCache() (int, error) {
	if b.store == nil {
		return 0, nil
	}
	n, err := b.store.Prune(b.fs.FileExists)
	if err != nil {
		return n, fmt.Errorf("tsbundle: prune cache: %w", err)
	}
	return n, nil
}

// canonical returns the canonical form of a caller-supplied path.
func (b *Bundler) canonical(p string) string {
	if b.osFS {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}
	return pathres.Clean(p)
}

// BundleOption configures one Bundle call.
type BundleOption func(*bundleConfig)

type bundleConfig struct {
	preserveDefault bool
	only            string
	as              string
	defaultName     string
}

// PreserveDefault re-emits the entry's default export as a trailing
// `export default <Name>;`.
func PreserveDefault(preserve bool) BundleOption {
	return func(c *bundleConfig) {
		c.preserveDefault = preserve
	}
}

// Only restricts the roots to the entry export called name.
func Only(name string) BundleOption {
	return func(c *bundleConfig) {
		c.only = name
	}
}

// As renames the root selected by Only.
func As(alias string) BundleOption {
	return func(c *bundleConfig) {
		c.as = alias
	}
}

// DefaultAs names the entry's default export in the bundle. Without it a
// named default keeps its declared name, and an anonymous one takes the
// name the entry imported it under, else DefaultExport.
func DefaultAs(name string) BundleOption {
	return func(c *bundleConfig) {
		c.defaultName = name
	}
}

// Result is the outcome of one Bundle call.
type Result struct {
	Entry       string       `json:"entry"`
	Text        string       `json:"text"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Graph       *Graph       `json:"graph"`
	Stats       Stats        `json:"stats"`
}

// Stats summarizes the work one Bundle call did. A parse or store lookup
// shared with a concurrent call is counted by each call that used it.
type Stats struct {
	Modules   int           `json:"modules"`
	Parsed    int           `json:"parsed"`
	CacheHits int           `json:"cacheHits"`
	StoreHits int           `json:"storeHits"`
	Emitted   int           `json:"emitted"`
	Duration  time.Duration `json:"duration"`
}

// Errors returns the diagnostics of error severity.
func (r *Result) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any diagnostic is an error.
func (r *Result) HasErrors() bool {
	return len(r.Errors()) > 0
}

// Bundle loads entry and everything it depends on and returns the bundle
// of declarations reachable from its exports. The error is non-nil only
// when loading fails (unreadable or malformed files, cancellation);
// resolution problems are reported as diagnostics on a best-effort result.
func (b *Bundler) Bundle(ctx context.Context, entry string, opts ...BundleOption) (*Result, error) {
	start := time.Now()
	cfg := &bundleConfig{}
	for _, o := range opts {
		o(cfg)
	}
	entry = b.canonical(entry)

	run := newLoadRun(b)
	globals, err := run.load(ctx, entry)
	if err != nil {
		return nil, err
	}

	diags := newDiagSink()
	rs := newResolver(run.modules, globals, diags)
	sel, err := selectSymbols(ctx, b, rs, run.modules[entry], cfg)
	if err != nil {
		return nil, err
	}
	text := emit(sel, cfg, b.banner)

	res := &Result{
		Entry:       entry,
		Text:        text,
		Diagnostics: diags.list,
		Graph:       sel.graph(),
		Stats:       run.stats,
	}
	res.Stats.Emitted = len(sel.order)
	res.Stats.Duration = time.Since(start)
	return res, nil
}
