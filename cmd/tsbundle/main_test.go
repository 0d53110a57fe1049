package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTSConfig_InStartDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cfg := filepath.Join(root, "tsconfig.json")
	require.NoError(t, os.WriteFile(cfg, []byte("{}"), 0o644))

	assert.Equal(t, cfg, findTSConfig(root))
}

func TestFindTSConfig_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cfg := filepath.Join(root, "tsconfig.json")
	require.NoError(t, os.WriteFile(cfg, []byte("{}"), 0o644))
	deep := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, cfg, findTSConfig(deep))
}

func TestFindTSConfig_StopsAtRepoRoot(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte("{}"), 0o644))
	repo := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))
	src := filepath.Join(repo, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))

	assert.Equal(t, "", findTSConfig(src))
}

func TestParseEntrySpec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		spec    string
		want    batchEntry
		wantErr bool
	}{
		{spec: "src/index.ts", want: batchEntry{Path: "src/index.ts"}},
		{spec: "src/index.ts:User", want: batchEntry{Path: "src/index.ts", Type: "User"}},
		{spec: "src/index.ts:User:ApiUser", want: batchEntry{Path: "src/index.ts", Type: "User", Alias: "ApiUser"}},
		{spec: ":User", wantErr: true},
		{spec: "a:b:c:d", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseEntrySpec(tt.spec)
		if tt.wantErr {
			assert.Error(t, err, tt.spec)
			continue
		}
		require.NoError(t, err, tt.spec)
		assert.Equal(t, tt.want, got, tt.spec)
	}
}

func TestOutputName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "custom.d.ts", outputName(batchEntry{Path: "a.ts", Type: "T", Output: "custom.d.ts"}))
	assert.Equal(t, "ApiUser.d.ts", outputName(batchEntry{Path: "a.ts", Type: "User", Alias: "ApiUser"}))
	assert.Equal(t, "User.d.ts", outputName(batchEntry{Path: "a.ts", Type: "User"}))
	assert.Equal(t, "models.d.ts", outputName(batchEntry{Path: "src/models.ts"}))
	assert.Equal(t, "types.d.ts", outputName(batchEntry{Path: "src/types.d.ts"}))
}

func TestLoadBatchFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "bundle.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(`out_dir = "dist"

[[entry]]
path = "src/index.ts"
type = "User"
alias = "ApiUser"

[[entry]]
path = "/abs/other.ts"
output = "other.d.ts"
`), 0o644))

	bf, err := loadBatchFile(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dist"), bf.OutDir)
	require.Len(t, bf.Entries, 2)
	assert.Equal(t, batchEntry{Path: filepath.Join(dir, "src", "index.ts"), Type: "User", Alias: "ApiUser"}, bf.Entries[0])
	assert.Equal(t, "/abs/other.ts", bf.Entries[1].Path)
	assert.Equal(t, "other.d.ts", bf.Entries[1].Output)
}

func TestLoadBatchFile_MissingPath(t *testing.T) {
	t.Parallel()
	cfg := filepath.Join(t.TempDir(), "bundle.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[[entry]]\ntype = \"User\"\n"), 0o644))

	_, err := loadBatchFile(cfg)
	assert.ErrorContains(t, err, "has no path")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TSBUNDLE_CACHE", "/tmp/cache.db")
	t.Setenv("TSBUNDLE_DEFAULT_NAME", "FromEnv")
	t.Setenv("TSBUNDLE_WORKERS", "3")

	var cache, defaultName string
	var workers int
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringVar(&cache, "cache", "", "")
	fs.StringVar(&defaultName, "default-name", "", "")
	fs.IntVar(&workers, "workers", 0, "")
	require.NoError(t, fs.Parse([]string{"--default-name", "FromFlag"}))

	require.NoError(t, applyEnv(fs))
	assert.Equal(t, "/tmp/cache.db", cache)
	assert.Equal(t, "FromFlag", defaultName)
	assert.Equal(t, 3, workers)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("TSBUNDLE_WORKERS", "many")

	var workers int
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.IntVar(&workers, "workers", 0, "")

	assert.ErrorContains(t, applyEnv(fs), "TSBUNDLE_WORKERS")
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
}

// TestBundleCommand runs the bundle command end to end against a project
// with a tsconfig path alias.
func TestBundleCommand(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, src string) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	}
	write("tsconfig.json", `{
  // aliases
  "compilerOptions": {
    "baseUrl": ".",
    "paths": { "@models/*": ["src/models/*"], },
  },
}`)
	write("src/models/user.ts", "export interface User {\n  id: string;\n}\n")
	write("src/index.ts", "import { User } from '@models/user';\n\nexport interface Account {\n  owner: User;\n}\n")

	out := filepath.Join(dir, "dist", "index.d.ts")
	rootCmd.SetArgs([]string{"bundle", filepath.Join(dir, "src", "index.ts"), "-o", out})
	require.NoError(t, rootCmd.Execute())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "export interface Account {\n  owner: User;\n}\n\nexport interface User {\n  id: string;\n}\n", string(got))
}
