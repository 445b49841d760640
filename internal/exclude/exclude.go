// Package exclude filters paths that the daemon must never observe or log.
package exclude

import (
	"path/filepath"
	"strings"
)

// DefaultPrefixes returns path prefixes that are excluded by default:
// kernel virtual filesystems and volatile temp/cache trees whose churn would
// drown the log.
func DefaultPrefixes() []string {
	return []string{
		"/proc",
		"/sys",
		"/dev",
		"/run",
		"/tmp",
		"/var/tmp",
		"/var/cache",
	}
}

// Filter decides whether a path lies under any excluded prefix. The live log
// file's own path is always a member so the daemon never logs its own writes.
type Filter struct {
	prefixes []string
}

// New creates a Filter from the given prefixes plus the live log path.
// Prefixes are cleaned; empty entries are dropped.
func New(prefixes []string, liveLogPath string) *Filter {
	f := &Filter{}
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		f.prefixes = append(f.prefixes, filepath.Clean(p))
	}
	if liveLogPath != "" {
		f.prefixes = append(f.prefixes, filepath.Clean(liveLogPath))
	}
	return f
}

// ShouldIgnore reports whether path is under any excluded prefix. A prefix
// matches the path itself or any descendant; "/tmpfile" does not match the
// prefix "/tmp".
func (f *Filter) ShouldIgnore(path string) bool {
	path = filepath.Clean(path)
	for _, prefix := range f.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Prefixes returns a copy of the effective exclusion prefixes.
func (f *Filter) Prefixes() []string {
	out := make([]string, len(f.prefixes))
	copy(out, f.prefixes)
	return out
}
