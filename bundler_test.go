package tsbundle

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tsbundle/internal/pathres"
	"github.com/jward/tsbundle/internal/script"
	"github.com/jward/tsbundle/internal/store"
	"github.com/jward/tsbundle/internal/syntax"
)

// newTestBundler serves files (absolute paths) from memory.
func newTestBundler(t *testing.T, files map[string]string, opts ...Option) *Bundler {
	t.Helper()
	fsys := fstest.MapFS{}
	for p, src := range files {
		fsys[strings.TrimPrefix(p, "/")] = &fstest.MapFile{Data: []byte(src)}
	}
	all := append([]Option{WithFileSystem(pathres.NewFS(fsys)), WithWorkers(4)}, opts...)
	b, err := New(all...)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func bundleOK(t *testing.T, b *Bundler, entry string, opts ...BundleOption) *Result {
	t.Helper()
	res, err := b.Bundle(context.Background(), entry, opts...)
	require.NoError(t, err)
	return res
}

func diagKinds(res *Result) []DiagnosticKind {
	var out []DiagnosticKind
	for _, d := range res.Diagnostics {
		out = append(out, d.Kind)
	}
	return out
}

// =============================================================================
// Selection and deduplication
// =============================================================================

func TestBundle_DeduplicatesSharedDeclarations(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/shared.ts": "export interface Shared {\n  v: number;\n}\n",
		"/proj/a.ts":      "import { Shared } from './shared';\nexport interface A {\n  s: Shared;\n}\n",
		"/proj/b.ts":      "import { Shared as S } from './shared';\nexport interface B {\n  s: S;\n}\n",
		"/proj/index.ts":  "export { A } from './a';\nexport { B } from './b';\nexport { Shared } from './shared';\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	want := "export interface A {\n  s: Shared;\n}\n\n" +
		"export interface B {\n  s: Shared;\n}\n\n" +
		"export interface Shared {\n  v: number;\n}\n"
	assert.Equal(t, want, res.Text)
	assert.Equal(t, 1, strings.Count(res.Text, "interface Shared"))
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, 3, res.Stats.Emitted)
	assert.Equal(t, 4, res.Stats.Modules)
}

func TestBundle_UnexportedDependencyIsPulledIn(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/index.ts": "type Hidden = string;\n\nexport interface Shown {\n  h: Hidden;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface Shown {\n  h: Hidden;\n}\n\nexport type Hidden = string;\n", res.Text)
}

func TestBundle_MergedDeclarationsStayTogether(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/index.ts": "export interface M {\n  a: string;\n}\nexport interface M {\n  b: number;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface M {\n  a: string;\n}\nexport interface M {\n  b: number;\n}\n", res.Text)
	assert.Equal(t, 1, res.Stats.Emitted)
}

func TestBundle_MethodTypeParameterDoesNotHideImport(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/u.ts":     "export interface U {\n  n: number;\n}\n",
		"/proj/index.ts": "import { U } from './u';\nexport interface Box {\n  map<U>(f: U): void;\n  u: U;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	want := "export interface Box {\n  map<U>(f: U): void;\n  u: U;\n}\n\n" +
		"export interface U {\n  n: number;\n}\n"
	assert.Equal(t, want, res.Text)
	assert.Empty(t, res.Diagnostics)
}

func TestBundle_MutualReferencesTerminate(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/a.ts":     "import { B } from './b';\nexport interface A {\n  b: B;\n}\n",
		"/proj/b.ts":     "import { A } from './a';\nexport interface B {\n  a: A;\n  self: B;\n}\n",
		"/proj/index.ts": "export * from './a';\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface A {\n  b: B;\n}\n\nexport interface B {\n  a: A;\n  self: B;\n}\n", res.Text)
}

func TestBundle_Deterministic(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"/proj/a.ts":     "import { C } from './c';\nexport interface A {\n  c: C;\n}\n",
		"/proj/b.ts":     "import { C } from './c';\nexport interface B {\n  c: C;\n}\n",
		"/proj/c.ts":     "export interface C {\n  n: number;\n}\n",
		"/proj/d.ts":     "export interface C {\n  s: string;\n}\nexport interface D {\n  c: C;\n}\n",
		"/proj/index.ts": "export * from './a';\nexport * from './b';\nexport { D } from './d';\n",
	}

	var texts []string
	for _, workers := range []int{1, 2, 8} {
		b := newTestBundler(t, files, WithWorkers(workers), WithModuleCache(0))
		texts = append(texts, bundleOK(t, b, "/proj/index.ts").Text)
	}
	assert.Equal(t, texts[0], texts[1])
	assert.Equal(t, texts[0], texts[2])
	assert.Contains(t, texts[0], "export interface C_c {\n  n: number;\n}")
}

// =============================================================================
// Naming
// =============================================================================

func TestBundle_CollisionRename(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/person.ts": "export interface Age {\n  years: number;\n}\n",
		"/proj/animal.ts": "export interface Age {\n  months: number;\n}\n",
		"/proj/index.ts": "import { Age } from './person';\nimport { Age as PetAge } from './animal';\n\n" +
			"export interface Owner {\n  age: Age;\n  pet: PetAge;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	want := "export interface Owner {\n  age: Age;\n  pet: Age_animal;\n}\n\n" +
		"export interface Age {\n  years: number;\n}\n\n" +
		"export interface Age_animal {\n  months: number;\n}\n"
	assert.Equal(t, want, res.Text)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagCollisionRename, res.Diagnostics[0].Kind)
	assert.Equal(t, SeverityInfo, res.Diagnostics[0].Severity)
	assert.False(t, res.HasErrors())
}

func TestBundle_CollisionWithIndexFileUsesDirName(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/a/index.ts": "export interface Item {\n  a: string;\n}\n",
		"/proj/b/index.ts": "export interface Item {\n  b: string;\n}\n",
		"/proj/index.ts": "import { Item } from './a';\nimport { Item as Other } from './b';\n" +
			"export interface Both {\n  x: Item;\n  y: Other;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Contains(t, res.Text, "y: Item_b;")
	assert.Contains(t, res.Text, "export interface Item_b {")
}

func TestBundle_UnresolvedNamesAreNotCaptured(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/bar.ts": "export interface Foo {\n  z: string;\n}\n",
		"/proj/index.ts": "import { Foo } from './nope';\nimport { Foo as Bar } from './bar';\n\n" +
			"export interface U {\n  a: Foo;\n  b: Bar;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface U {\n  a: Foo;\n  b: Foo_bar;\n}\n\nexport interface Foo_bar {\n  z: string;\n}\n", res.Text)
	assert.ElementsMatch(t, []DiagnosticKind{DiagUnresolvedImport, DiagCollisionRename}, diagKinds(res))
}

func TestBundle_QualifiedEnumMember(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/colors.ts": "export enum Color {\n  Red,\n  Blue,\n}\n",
		"/proj/index.ts":  "import * as NS from './colors';\n\nexport interface Paint {\n  c: NS.Color.Red;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface Paint {\n  c: Color.Red;\n}\n\nexport enum Color {\n  Red,\n  Blue,\n}\n", res.Text)
}

func TestBundle_SeveralExportNamesForOneDeclaration(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/index.ts": "interface A {}\nexport { A, A as B };\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface A {}\n\nexport { A as B };\n", res.Text)
}

// =============================================================================
// Default exports
// =============================================================================

func TestBundle_NamedDefault(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"/proj/index.ts": "export default interface Config {\n  port: number;\n}\n",
	}

	t.Run("declared name", func(t *testing.T) {
		t.Parallel()
		res := bundleOK(t, newTestBundler(t, files), "/proj/index.ts")
		assert.Equal(t, "export interface Config {\n  port: number;\n}\n", res.Text)
	})

	t.Run("preserved", func(t *testing.T) {
		t.Parallel()
		res := bundleOK(t, newTestBundler(t, files), "/proj/index.ts", PreserveDefault(true))
		assert.Equal(t, "export interface Config {\n  port: number;\n}\n\nexport default Config;\n", res.Text)
	})

	t.Run("renamed", func(t *testing.T) {
		t.Parallel()
		res := bundleOK(t, newTestBundler(t, files), "/proj/index.ts", PreserveDefault(true), DefaultAs("Settings"))
		assert.Equal(t, "export interface Settings {\n  port: number;\n}\n\nexport default Settings;\n", res.Text)
	})
}

func TestBundle_AnonymousDefault(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"/proj/widget.ts":   "export default class {\n  id: string;\n}\n",
		"/proj/consumer.ts": "import Widget from './widget';\n\nexport interface Holder {\n  w: Widget;\n}\n",
		"/proj/value.ts":    "export default 42;\n",
		"/proj/entry.ts":    "import Widget from './widget';\nexport default Widget;\n",
	}

	t.Run("entry placeholder", func(t *testing.T) {
		t.Parallel()
		res := bundleOK(t, newTestBundler(t, files), "/proj/widget.ts")
		assert.Equal(t, "export class DefaultExport {\n  id: string;\n}\n", res.Text)
	})

	t.Run("entry named", func(t *testing.T) {
		t.Parallel()
		res := bundleOK(t, newTestBundler(t, files), "/proj/widget.ts", DefaultAs("Gadget"))
		assert.Equal(t, "export class Gadget {\n  id: string;\n}\n", res.Text)
	})

	t.Run("named by importer", func(t *testing.T) {
		t.Parallel()
		res := bundleOK(t, newTestBundler(t, files), "/proj/consumer.ts")
		assert.Equal(t, "export interface Holder {\n  w: Widget;\n}\n\nexport class Widget {\n  id: string;\n}\n", res.Text)
	})

	t.Run("reexported by entry", func(t *testing.T) {
		t.Parallel()
		res := bundleOK(t, newTestBundler(t, files), "/proj/entry.ts", PreserveDefault(true))
		assert.Equal(t, "export class Widget {\n  id: string;\n}\n\nexport default Widget;\n", res.Text)
	})

	t.Run("expression", func(t *testing.T) {
		t.Parallel()
		res := bundleOK(t, newTestBundler(t, files), "/proj/value.ts")
		assert.Equal(t, "export type DefaultExport = unknown;\n", res.Text)
	})
}

// =============================================================================
// Root selection
// =============================================================================

func TestBundle_OnlyAndAs(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"/proj/index.ts": "export interface A {\n  a: string;\n}\n\nexport interface B {\n  a: A;\n}\n",
	}

	res := bundleOK(t, newTestBundler(t, files), "/proj/index.ts", Only("B"), As("Renamed"))
	assert.Equal(t, "export interface Renamed {\n  a: A;\n}\n\nexport interface A {\n  a: string;\n}\n", res.Text)

	_, err := newTestBundler(t, files).Bundle(context.Background(), "/proj/index.ts", Only("Nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotExported))
}

func TestBundle_RootFilter(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var logged []string
	filter := script.New(`log.Info(name)
name != "Hidden"`, script.WithLogf(func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		logged = append(logged, format)
	}))

	b := newTestBundler(t, map[string]string{
		"/proj/index.ts": "export interface Hidden {}\nexport interface Visible {}\n",
	}, WithRootFilter(filter))

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface Visible {}\n", res.Text)
	mu.Lock()
	assert.Len(t, logged, 2)
	mu.Unlock()
}

func TestBundle_NamespaceReexportIsSkipped(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/lib.ts":   "export interface L {}\n",
		"/proj/index.ts": "export * as lib from './lib';\nexport interface Keep {}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface Keep {}\n", res.Text)
	assert.Equal(t, []DiagnosticKind{DiagNamespaceExport}, diagKinds(res))
}

// =============================================================================
// Diagnostics
// =============================================================================

func TestBundle_AmbiguousStarExport(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/x.ts":     "export interface Dup {\n  x: 1;\n}\n",
		"/proj/y.ts":     "export interface Dup {\n  y: 2;\n}\nexport interface Single {}\n",
		"/proj/index.ts": "export * from './x';\nexport * from './y';\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface Single {}\n", res.Text)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagAmbiguousStarExport, res.Diagnostics[0].Kind)
	assert.Equal(t, "Dup", res.Diagnostics[0].Symbol)
}

func TestBundle_ExplicitExportShadowsStar(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/x.ts":     "export interface Dup {\n  x: 1;\n}\n",
		"/proj/index.ts": "export * from './x';\nexport interface Dup {\n  own: true;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface Dup {\n  own: true;\n}\n", res.Text)
	assert.Empty(t, res.Diagnostics)
}

func TestBundle_CircularAlias(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/a.ts":     "export { X } from './b';\n",
		"/proj/b.ts":     "export { X } from './a';\n",
		"/proj/index.ts": "export { X } from './a';\nexport interface Ok {}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface Ok {}\n", res.Text)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagCircularAlias, res.Diagnostics[0].Kind)
	assert.Contains(t, res.Diagnostics[0].Message, "/proj/a.ts#X")
	assert.True(t, res.HasErrors())
}

func TestBundle_UnresolvedImportIsLeaf(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/index.ts": "import { Missing } from './nope';\n\nexport interface U {\n  m: Missing;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface U {\n  m: Missing;\n}\n", res.Text)
	require.Len(t, res.Errors(), 1)
	d := res.Errors()[0]
	assert.Equal(t, DiagUnresolvedImport, d.Kind)
	assert.Equal(t, "./nope", d.Specifier)
	assert.Equal(t, "/proj/index.ts", d.Module)
	assert.Equal(t, `unresolved import "./nope" from /proj/index.ts`, d.Message)
}

func TestBundle_MissingExport(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/a.ts":     "export interface A {}\n",
		"/proj/index.ts": "import { Nope } from './a';\n\nexport interface U {\n  n: Nope;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface U {\n  n: Nope;\n}\n", res.Text)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagMissingExport, res.Diagnostics[0].Kind)
	assert.Equal(t, "Nope", res.Diagnostics[0].Symbol)
	assert.Equal(t, "/proj/a.ts", res.Diagnostics[0].Module)
}

// =============================================================================
// Resolution sources
// =============================================================================

func TestBundle_PathAliasMatchesRelative(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"/proj/src/utils/alias.ts": "export interface AliasUser {\n  handle: string;\n}\n",
		"/proj/src/aliased.ts":     "import { AliasUser } from '@utils/alias';\nexport interface P {\n  u: AliasUser;\n}\n",
		"/proj/src/relative.ts":    "import { AliasUser } from './utils/alias';\nexport interface P {\n  u: AliasUser;\n}\n",
	}
	b := newTestBundler(t, files, WithAliases(AliasTable{"@utils/*": "/proj/src/utils/*"}))

	aliased := bundleOK(t, b, "/proj/src/aliased.ts")
	relative := bundleOK(t, b, "/proj/src/relative.ts")
	assert.Equal(t, relative.Text, aliased.Text)
	assert.Empty(t, aliased.Diagnostics)
}

func TestBundle_GlobalFiles(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/globals.d.ts": "interface GlobalThing {\n  g: boolean;\n}\n",
		"/proj/index.ts":     "export interface Uses {\n  g: GlobalThing;\n}\n",
	}, WithGlobalFiles("/proj/globals.d.ts"))

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "export interface Uses {\n  g: GlobalThing;\n}\n\nexport interface GlobalThing {\n  g: boolean;\n}\n", res.Text)
}

func TestBundle_Banner(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/index.ts": "export interface A {}\n",
	}, WithBanner("// generated\n"))

	res := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, "// generated\n\nexport interface A {}\n", res.Text)
}

// =============================================================================
// Loading and caching
// =============================================================================

func TestBundle_MissingEntryFails(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{})
	_, err := b.Bundle(context.Background(), "/proj/index.ts")
	require.Error(t, err)
}

func TestBundle_Cancelled(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/index.ts": "export interface A {}\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Bundle(ctx, "/proj/index.ts")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBundle_SharedParseOutlivesCancelledCaller(t *testing.T) {
	t.Parallel()
	src := "export interface A {\n  n: number;\n}\n"
	b := newTestBundler(t, map[string]string{"/proj/index.ts": src}, WithModuleCache(0))
	key := "/proj/index.ts\x00" + store.ContentHash([]byte(src))

	// Hold a parse of index.ts open until release is closed.
	started := make(chan struct{})
	release := make(chan struct{})
	go b.flight.Do(key, func() (any, error) {
		close(started)
		<-release
		f, err := syntax.Parse(context.Background(), "/proj/index.ts", []byte(src))
		if err != nil {
			return nil, err
		}
		return &loaded{m: buildModule("/proj/index.ts", f, nil)}, nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := b.Bundle(ctx, "/proj/index.ts")
		cancelled <- err
	}()
	cancel()
	err := <-cancelled
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := b.Bundle(context.Background(), "/proj/index.ts")
		done <- outcome{res, err}
	}()
	close(release)

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, src, out.res.Text)
	assert.Equal(t, 1, out.res.Stats.Parsed)
}

func TestBundle_ModuleCacheHits(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/a.ts":     "export interface A {}\n",
		"/proj/index.ts": "export * from './a';\n",
	})

	first := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, 2, first.Stats.Parsed)
	assert.Equal(t, 0, first.Stats.CacheHits)

	second := bundleOK(t, b, "/proj/index.ts")
	assert.Equal(t, 0, second.Stats.Parsed)
	assert.Equal(t, 2, second.Stats.CacheHits)
	assert.Equal(t, first.Text, second.Text)
}

func TestBundle_CacheDBReusedAcrossBundlers(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"/proj/a.ts":     "export interface A {\n  n: number;\n}\n",
		"/proj/index.ts": "import { A } from './a';\nexport interface Root {\n  a: A;\n}\n",
	}
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	first := bundleOK(t, newTestBundler(t, files, WithCacheDB(dbPath)), "/proj/index.ts")
	assert.Equal(t, 2, first.Stats.Parsed)
	assert.Equal(t, 0, first.Stats.StoreHits)

	second := bundleOK(t, newTestBundler(t, files, WithCacheDB(dbPath)), "/proj/index.ts")
	assert.Equal(t, 0, second.Stats.Parsed)
	assert.Equal(t, 2, second.Stats.StoreHits)
	assert.Equal(t, first.Text, second.Text)
}

func TestBundler_PruneCache(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	bundleOK(t, newTestBundler(t, map[string]string{
		"/proj/a.ts":     "export interface A {}\n",
		"/proj/index.ts": "export * from './a';\n",
	}, WithCacheDB(dbPath)), "/proj/index.ts")

	b := newTestBundler(t, map[string]string{
		"/proj/index.ts": "export * from './a';\n",
	}, WithCacheDB(dbPath))
	n, err := b.PruneCache()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = newTestBundler(t, nil).PruneCache()
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// Graph
// =============================================================================

func TestBundle_GraphWhy(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/c.ts":     "export interface C {}\n",
		"/proj/b.ts":     "import { C } from './c';\nexport interface B {\n  c: C;\n}\n",
		"/proj/index.ts": "import { B } from './b';\nexport interface A {\n  b: B;\n}\n",
	})

	res := bundleOK(t, b, "/proj/index.ts")
	g := res.Graph
	require.Len(t, g.Nodes, 3)

	c, ok := g.Node("C")
	require.True(t, ok)
	assert.Equal(t, 2, c.Depth)
	assert.Equal(t, "/proj/c.ts", c.Path)
	assert.Equal(t, "B", c.Parent)
	assert.Equal(t, "C", c.Via)

	var chain []string
	for _, n := range g.Why("C") {
		chain = append(chain, n.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, chain)
	assert.Nil(t, g.Why("Nope"))
	assert.Equal(t, []string{"B"}, g.Dependents("C"))

	a, ok := g.Node("A")
	require.True(t, ok)
	assert.True(t, a.Root)
	assert.Equal(t, []string{"A"}, a.Exports)
}

// =============================================================================
// Batch
// =============================================================================

func TestBundleBatch(t *testing.T) {
	t.Parallel()
	b := newTestBundler(t, map[string]string{
		"/proj/index.ts": "export interface A {}\nexport interface B {\n  a: A;\n}\n",
	})

	results, err := b.BundleBatch(context.Background(), []Entry{
		{Path: "/proj/index.ts", Name: "all"},
		{Path: "/proj/index.ts", Type: "B", Alias: "Bee", Name: "bee"},
		{Path: "/proj/missing.ts", Name: "missing"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch had 1 error(s)")
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "export interface A {}\n\nexport interface B {\n  a: A;\n}\n", results[0].Result.Text)

	require.NoError(t, results[1].Err)
	assert.Equal(t, "export interface Bee {\n  a: A;\n}\n\nexport interface A {}\n", results[1].Result.Text)

	assert.Error(t, results[2].Err)
	assert.Nil(t, results[2].Result)
}
