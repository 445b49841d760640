package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sweeper deletes archive segments older than the retention window. It
// scans the live log's directory for segments carrying the live log's name
// prefix and never inspects or deletes the live log itself.
type Sweeper struct {
	livePath  string
	retention time.Duration
}

// NewSweeper creates a Sweeper for the given live log path and retention
// window.
func NewSweeper(livePath string, retention time.Duration) *Sweeper {
	return &Sweeper{livePath: livePath, retention: retention}
}

// Sweep removes archive segments whose last-modified time is older than the
// retention window relative to now. It returns the paths it deleted. A sweep
// with nothing to act on is a no-op.
func (s *Sweeper) Sweep(now time.Time) ([]string, error) {
	dir := filepath.Dir(s.livePath)
	prefix := filepath.Base(s.livePath) + "_"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive directory: %w", err)
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".gz") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= s.retention {
			continue
		}

		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove archive %s: %w", name, err)
		}
		removed = append(removed, path)
	}

	return removed, nil
}
