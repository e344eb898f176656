package search

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtraPaths are appended to the inherited PATH so shell functions and
// their helpers resolve in minimal environments.
var DefaultExtraPaths = []string{
	"/opt/homebrew/bin", "/opt/homebrew/sbin",
	"/usr/local/bin", "/usr/local/sbin",
	"/usr/bin", "/bin", "/usr/sbin", "/sbin",
}

// AugmentPath appends extras to the colon-separated current PATH, dropping
// empty and duplicate entries while preserving first-seen order.
func AugmentPath(current string, extras []string) string {
	seen := make(map[string]struct{})
	var parts []string
	add := func(p string) {
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		parts = append(parts, p)
	}
	for _, p := range filepath.SplitList(current) {
		add(p)
	}
	for _, p := range extras {
		add(p)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

// ChildEnv derives a child process environment from base: PATH augmented with
// extras and color output disabled. Everything else passes through unchanged.
func ChildEnv(base []string, extras []string) []string {
	env := setEnv(base, "PATH", AugmentPath(getEnv(base, "PATH"), extras))
	return setEnv(env, "NO_COLOR", "1")
}

// LookPath finds an executable named name in the directories of path. Names
// containing a separator are returned as-is. fallback is returned when
// nothing matches.
func LookPath(name, path, fallback string) string {
	if name == "" {
		return fallback
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate
		}
	}
	return fallback
}

// EnvValue returns the value of key in env, or "" when unset.
func EnvValue(env []string, key string) string { return getEnv(env, key) }

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

func getEnv(env []string, key string) string {
	prefix := key + "="
	val := ""
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			val = kv[len(prefix):]
		}
	}
	return val
}

func setEnv(env []string, key, val string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+val)
}
