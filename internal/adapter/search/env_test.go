package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAugmentPath(t *testing.T) {
	tests := []struct {
		name    string
		current string
		extras  []string
		want    string
	}{
		{"empty current", "", []string{"/a", "/b"}, "/a:/b"},
		{"appends", "/x:/y", []string{"/a"}, "/x:/y:/a"},
		{"dedups preserving first", "/usr/bin:/x", []string{"/usr/bin", "/bin"}, "/usr/bin:/x:/bin"},
		{"drops empty entries", "/x::/y:", []string{""}, "/x:/y"},
		{"duplicates in current", "/x:/x", nil, "/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AugmentPath(tt.current, tt.extras))
		})
	}
}

func TestChildEnv(t *testing.T) {
	base := []string{"HOME=/home/u", "PATH=/x", "NO_COLOR=0", "BRAVE_SEARCH_PYTHON_CLIENT_API_KEY=k"}
	env := ChildEnv(base, []string{"/bin"})

	assert.Equal(t, "/x:/bin", EnvValue(env, "PATH"))
	assert.Equal(t, "1", EnvValue(env, "NO_COLOR"))
	assert.Equal(t, "/home/u", EnvValue(env, "HOME"))
	assert.Equal(t, "k", EnvValue(env, "BRAVE_SEARCH_PYTHON_CLIENT_API_KEY"))

	count := 0
	for _, kv := range env {
		if len(kv) >= 5 && kv[:5] == "PATH=" {
			count++
		}
	}
	assert.Equal(t, 1, count, "PATH appears once")
	assert.Equal(t, "/x", EnvValue(base, "PATH"), "base is not mutated")
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "fakeshell")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))
	plain := filepath.Join(dir, "notexec")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))

	path := "/nonexistent:" + dir

	assert.Equal(t, exe, LookPath("fakeshell", path, "/fallback"))
	assert.Equal(t, "/fallback", LookPath("notexec", path, "/fallback"))
	assert.Equal(t, "/fallback", LookPath("missing", path, "/fallback"))
	assert.Equal(t, "/fallback", LookPath("", path, "/fallback"))
	assert.Equal(t, "/abs/fish", LookPath("/abs/fish", path, "/fallback"))
}
