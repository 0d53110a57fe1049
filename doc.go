// Package tsbundle flattens a TypeScript module graph into one
// self-contained declaration file holding exactly the declarations
// reachable from an entry module's exports.
//
// # Pipeline
//
// A Bundle call runs five stages over an immutable module set:
//
//  1. Load: parse the entry and, level by level, every file it imports or
//     re-exports from, on a bounded worker pool. Each file is reduced by
//     tree-sitter to top-level declarations, imports and exports.
//
//  2. Bind: build each module's local declaration table and export table.
//     `export *` directives are kept as lazily expanded sets.
//
//  3. Resolve: follow import, re-export, default and namespace chains to
//     the declaring module of every name. Re-export loops are reported as
//     [CircularAliasError] diagnostics.
//
//  4. Select: walk breadth-first from the entry's exports over type
//     references. Each declaration is visited once, however many alias
//     chains reach it; names that collide get a file-derived suffix.
//
//  5. Emit: write the selected declarations verbatim in discovery order,
//     rewriting only renamed or namespace-qualified references.
//
// # Usage
//
//	b, err := tsbundle.New(tsbundle.WithAliases(tsbundle.AliasTable{"@utils": "src/utils"}))
//	if err != nil { ... }
//	defer b.Close()
//
//	res, err := b.Bundle(ctx, "src/index.ts", tsbundle.PreserveDefault(true))
//	if err != nil { ... } // syntax or I/O failure
//	for _, d := range res.Errors() { ... }
//	os.WriteFile("bundle.d.ts", []byte(res.Text), 0o644)
//
// # Diagnostics
//
// Resolution problems do not stop a bundle. Unresolved imports, missing
// exports and alias loops turn the affected references into leaves and are
// listed in [Result.Diagnostics]; renames and ambiguous `export *` names
// are recorded there as informational entries.
//
// # Caching
//
// Parsed modules are kept in an in-memory LRU keyed by path and content
// hash ([WithModuleCache]) and, with [WithCacheDB], in a SQLite database
// that survives the process.
package tsbundle
