package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var user = Root{Name: "PublicUser", Declared: "User", Kind: "interface", Path: "/src/models/user.ts"}

func TestKeep_Expressions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		src  string
		want bool
	}{
		{`kind == "interface"`, true},
		{`kind == "enum"`, false},
		{`declared == "User" && name != declared`, true},
		{`glob("/src/models/*", path)`, true},
		{`glob("*Internal*", name)`, false},
		{`nil`, false},
	}
	for _, tt := range tests {
		got, err := New(tt.src).Keep(ctx, user)
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, got, tt.src)
	}
}

func TestKeep_Log(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		lines []string
	)
	f := New(`log.Info("checking " + name)
true`, WithLogf(func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, args...))
	}))

	keep, err := f.Keep(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, []string{"[filter] INFO: checking PublicUser"}, lines)
}

func TestKeep_ScriptError(t *testing.T) {
	t.Parallel()
	_, err := New(`undefined_function()`).Keep(context.Background(), user)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PublicUser")
}

func TestLoad(t *testing.T) {
	t.Parallel()
	p := filepath.Join(t.TempDir(), "only-interfaces.risor")
	require.NoError(t, os.WriteFile(p, []byte(`kind == "interface"`), 0o644))

	f, err := Load(p)
	require.NoError(t, err)
	keep, err := f.Keep(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, keep)

	_, err = Load(filepath.Join(t.TempDir(), "missing.risor"))
	require.Error(t, err)
}
