package tsbundle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jward/tsbundle/internal/store"
	"github.com/jward/tsbundle/internal/syntax"
)

// loadRun owns the module map of one Bundle call. Loading proceeds level
// by level over the import graph:
//
//	Phase A (serial):   collect the paths first reached at this depth.
//	Phase B (parallel): read, hash, look up caches and parse on a bounded
//	                    worker pool; concurrent requests for one file share
//	                    a single parse through the Bundler's singleflight.
//	Phase C (serial):   publish the modules, then, once every level is
//	                    loaded, commit new extractions to the SQLite store.
type loadRun struct {
	b       *Bundler
	batch   *store.BatchedStore
	modules map[string]*Module

	mu    sync.Mutex
	stats Stats
}

func newLoadRun(b *Bundler) *loadRun {
	r := &loadRun{b: b, modules: make(map[string]*Module)}
	if b.store != nil {
		r.batch = store.NewBatchedStore(b.store)
	}
	return r
}

// load loads entry, the configured global files and everything they import.
// It returns the global modules in configuration order.
func (r *loadRun) load(ctx context.Context, entry string) ([]*Module, error) {
	globalPaths := make([]string, 0, len(r.b.globalFiles))
	for _, g := range r.b.globalFiles {
		globalPaths = append(globalPaths, r.b.canonical(g))
	}

	seen := map[string]bool{entry: true}
	frontier := []string{entry}
	for _, g := range globalPaths {
		if !seen[g] {
			seen[g] = true
			frontier = append(frontier, g)
		}
	}

	for depth := 0; len(frontier) > 0; depth++ {
		mods, err := r.loadLevel(ctx, frontier)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, m := range mods {
			for _, dep := range m.Deps {
				if !seen[dep] {
					seen[dep] = true
					next = append(next, dep)
				}
			}
		}
		r.b.logf("load: depth %d: %d module(s), %d queued", depth, len(mods), len(next))
		frontier = next
	}
	r.stats.Modules = len(r.modules)
	r.commit()

	globals := make([]*Module, 0, len(globalPaths))
	for _, g := range globalPaths {
		globals = append(globals, r.modules[g])
	}
	return globals, nil
}

func (r *loadRun) loadLevel(ctx context.Context, paths []string) ([]*Module, error) {
	mods := make([]*Module, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.b.workers)
	for i, p := range paths {
		g.Go(func() error {
			m, err := r.loadModule(gctx, p)
			if err != nil {
				return err
			}
			mods[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, m := range mods {
		r.modules[m.Path] = m
	}
	return mods, nil
}

func (r *loadRun) count(field *int) {
	r.mu.Lock()
	*field++
	r.mu.Unlock()
}

// loadModule returns the module for p, consulting the in-memory cache, then
// the store, before parsing.
func (r *loadRun) loadModule(ctx context.Context, p string) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.b.fs.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p, err)
	}
	hash := store.ContentHash(data)
	key := p + "\x00" + hash

	if r.b.cache != nil {
		if m, ok := r.b.cache.Get(key); ok {
			r.count(&r.stats.CacheHits)
			return m, nil
		}
	}

	// The shared parse is detached from ctx: a cancelled caller stops
	// waiting, the others still get the module.
	ch := r.b.flight.DoChan(key, func() (any, error) {
		f, fromStore, err := r.extract(context.WithoutCancel(ctx), p, hash, data)
		if err != nil {
			return nil, err
		}
		m := buildModule(p, f, func(spec string) (string, error) {
			return r.b.resolver.Resolve(p, spec)
		})
		if r.b.cache != nil {
			r.b.cache.Add(key, m)
		}
		return &loaded{m: m, fromStore: fromStore}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		l := res.Val.(*loaded)
		if l.fromStore {
			r.count(&r.stats.StoreHits)
		} else {
			r.count(&r.stats.Parsed)
		}
		return l.m, nil
	}
}

// loaded is the result of one shared load. Every caller that receives it
// counts it in its own Stats.
type loaded struct {
	m         *Module
	fromStore bool
}

func (r *loadRun) extract(ctx context.Context, p, hash string, data []byte) (*syntax.File, bool, error) {
	if r.batch != nil {
		f, ok, err := r.batch.LookupFile(p, hash)
		if err != nil {
			r.b.logf("cache: lookup %s: %v", p, err)
		} else if ok {
			return f, true, nil
		}
	}

	pctx := ctx
	if r.b.parseTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, r.b.parseTimeout)
		defer cancel()
	}
	f, err := syntax.Parse(pctx, p, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, false, fmt.Errorf("load %s: parse exceeded %s: %w", p, r.b.parseTimeout, err)
		}
		return nil, false, fmt.Errorf("load %s: %w", p, err)
	}

	if r.batch != nil {
		if err := r.batch.PutFile(f, hash); err != nil {
			r.b.logf("cache: buffer %s: %v", p, err)
		}
	}
	return f, false, nil
}

// commit writes newly parsed files to the store.
func (r *loadRun) commit() {
	if r.batch == nil || r.batch.Len() == 0 {
		return
	}
	n := r.batch.Len()
	if err := r.b.store.CommitBatch(r.batch); err != nil {
		r.b.logf("cache: commit: %v", err)
		return
	}
	r.b.logf("cache: committed %d file(s)", n)
}
