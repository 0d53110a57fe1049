// Package script evaluates Risor root filters. A filter is a Risor
// expression or program run once per candidate bundle root; its final
// value decides, by truthiness, whether the root is kept.
//
// Globals available to a filter:
//
//	name      display name the root is exported under
//	declared  name as declared in its defining module
//	kind      declaration kind ("interface", "type", ...)
//	path      canonical path of the defining module
//	glob(pattern, s)  shell-style match of s against pattern
//	log       log.Info / log.Warn / log.Error
package script

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

// Root describes one candidate root handed to a filter.
type Root struct {
	Name     string
	Declared string
	Kind     string
	Path     string
}

// Filter is a compiled-on-demand Risor filter. It is safe for concurrent
// use; each evaluation gets its own VM.
type Filter struct {
	source string
	label  string
	logf   func(format string, args ...any)
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithLogf routes the script's log object to fn.
func WithLogf(fn func(format string, args ...any)) FilterOption {
	return func(f *Filter) {
		f.logf = fn
	}
}

// New creates a Filter from Risor source.
func New(source string, opts ...FilterOption) *Filter {
	f := &Filter{source: source, label: "<inline>", logf: func(string, ...any) {}}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Load reads a filter script from disk.
func Load(p string, opts ...FilterOption) (*Filter, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("script: loading %s: %w", p, err)
	}
	f := New(string(data), opts...)
	f.label = p
	return f, nil
}

// Keep evaluates the filter for r.
func (f *Filter) Keep(ctx context.Context, r Root) (bool, error) {
	globals := map[string]any{
		"name":     r.Name,
		"declared": r.Declared,
		"kind":     r.Kind,
		"path":     r.Path,
		"glob":     globFn,
		"log":      mustProxy(&logObject{logf: f.logf}),
	}
	opts := make([]risor.Option, 0, len(globals))
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	result, err := risor.Eval(ctx, f.source, opts...)
	if err != nil {
		return false, fmt.Errorf("script: filter %s on %s: %w", f.label, r.Name, err)
	}
	if result == nil {
		return false, nil
	}
	return result.IsTruthy(), nil
}

// globFn is the "glob" host function.
//
// glob(pattern, s) → bool
var globFn = object.NewBuiltin("glob", func(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 2 {
		return object.NewArgsError("glob", 2, len(args))
	}
	pattern, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("glob: pattern must be a string, got %s", args[0].Type())
	}
	s, ok := args[1].(*object.String)
	if !ok {
		return object.Errorf("glob: subject must be a string, got %s", args[1].Type())
	}
	matched, err := path.Match(pattern.Value(), s.Value())
	if err != nil {
		return object.Errorf("glob: %v", err)
	}
	return object.NewBool(matched)
})

// logObject provides log.info/warn/error methods for filter scripts.
type logObject struct {
	logf func(format string, args ...any)
}

func (l *logObject) Info(msg string) {
	l.logf("[filter] INFO: %s", msg)
}

func (l *logObject) Warn(msg string) {
	l.logf("[filter] WARN: %s", msg)
}

func (l *logObject) Error(msg string) {
	l.logf("[filter] ERROR: %s", msg)
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("script: proxy error: %v", err))
	}
	return p
}
