// Package pathset resolves the configured candidate roots into the set of
// directories that can actually be watched.
package pathset

import "os"

// DefaultCandidates returns the default candidate root directories. /var is
// deliberately absent: the live log and its archives live there and watching
// it would feed the daemon its own output.
func DefaultCandidates() []string {
	return []string{"/home", "/etc", "/root", "/usr", "/opt"}
}

// Resolve filters candidates down to those that exist and are directories.
// Missing candidates are skipped silently; a host without /opt is normal.
func Resolve(candidates []string) []string {
	var roots []string
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil || !info.IsDir() {
			continue
		}
		roots = append(roots, c)
	}
	return roots
}
