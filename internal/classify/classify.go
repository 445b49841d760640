// Package classify turns raw filesystem notifications into structured log
// entries by diffing them against the last-known state per path.
//
// Each path independently moves through Unknown -> Known -> (Known|Deleted).
// A notification for an unknown path never synthesizes a fabricated diff:
// the current state is adopted silently as the baseline.
package classify

import (
	"errors"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"watchdog/internal/audit"
	"watchdog/internal/exclude"
	"watchdog/internal/state"
	"watchdog/internal/watch"
)

// Config holds the classifier's heuristic parameters.
type Config struct {
	// CopyWindow bounds how long a creation stays eligible for the
	// possible-copy heuristic.
	CopyWindow time.Duration
	// CopyTolerance is the maximum size difference, exclusive, for two
	// creations to be flagged as a possible copy.
	CopyTolerance uint64
}

// DefaultConfig returns the classifier defaults: a 10 second copy window
// and a 10 byte size tolerance.
func DefaultConfig() Config {
	return Config{
		CopyWindow:    10 * time.Second,
		CopyTolerance: 10,
	}
}

// Classifier consumes one raw event at a time, consults and updates the
// state store, and emits zero or more structured entries per event. It never
// returns an error: metadata failures are logged as diagnostics and the
// triggering event is dropped without partial state mutation.
type Classifier struct {
	store  *state.Store
	filter *exclude.Filter
	cfg    Config
	diag   *log.Logger

	// reportedPairs dedupes possible-copy emissions while both candidates
	// remain inside the window.
	reportedPairs map[string]bool
}

// New creates a Classifier. diag may be nil, in which case diagnostics are
// discarded.
func New(store *state.Store, filter *exclude.Filter, cfg Config, diag *log.Logger) *Classifier {
	if diag == nil {
		diag = log.New(io.Discard, "", 0)
	}
	return &Classifier{
		store:         store,
		filter:        filter,
		cfg:           cfg,
		diag:          diag,
		reportedPairs: make(map[string]bool),
	}
}

// Process classifies one raw event at observation time now. Exclusion is
// evaluated before any state read or write.
func (c *Classifier) Process(now time.Time, ev watch.RawEvent) []audit.Entry {
	if c.filter.ShouldIgnore(ev.Path) {
		return nil
	}

	switch ev.Op {
	case watch.OpCreated:
		return c.onCreated(now, ev.Path)
	case watch.OpModified:
		return c.onModified(now, ev.Path, ev.IsDir)
	case watch.OpDeleted:
		return c.onDeleted(now, ev.Path)
	case watch.OpMoved:
		return c.onMoved(now, ev.Path, ev.DestPath)
	default:
		c.diag.Printf("dropping event with unknown op %d for %s", ev.Op, ev.Path)
		return nil
	}
}

// onCreated records a new path and reports creation plus any copy or
// hard-link relationship its inode reveals.
func (c *Classifier) onCreated(now time.Time, path string) []audit.Entry {
	md, err := probe(path)
	if err != nil {
		// Vanished between notification and inspection: a race, not an error.
		if !errors.Is(err, os.ErrNotExist) {
			c.diag.Printf("stat failed for created path %s: %v", path, err)
		}
		return nil
	}

	fs := state.FileState{
		Path:     path,
		Size:     md.Size,
		Perm:     md.Perm,
		Owner:    md.Owner,
		Inode:    md.Inode,
		Links:    md.Links,
		IsDir:    md.IsDir,
		LastSeen: now,
	}
	c.store.Put(fs)

	if md.IsSymlink {
		return []audit.Entry{{
			Time:   now,
			Action: audit.ActionSymlinkCreated,
			Path:   path,
			Target: md.SymlinkTo,
		}}
	}

	entries := []audit.Entry{{
		Time:   now,
		Action: audit.ActionCreated,
		IsDir:  md.IsDir,
		Path:   path,
	}}

	if md.IsDir {
		return entries
	}

	if source, ok := c.store.InodeOwner(md.Inode); ok && source != path {
		entries = append(entries, audit.Entry{
			Time:     now,
			Action:   audit.ActionCopyDetected,
			Path:     source,
			DestPath: path,
		})
	} else {
		c.store.ClaimInode(md.Inode, path)
	}

	if md.Links > 1 {
		entries = append(entries, audit.Entry{
			Time:   now,
			Action: audit.ActionHardLinkDetected,
			Path:   path,
			Links:  md.Links,
		})
	}

	c.store.RecordRecent(path, md.Size, now)
	return entries
}

// onModified diffs the current metadata against the stored baseline and
// emits at most one MODIFIED entry plus separate permission and ownership
// entries. A path with no prior state adopts the observation silently.
func (c *Classifier) onModified(now time.Time, path string, isDir bool) []audit.Entry {
	if isDir {
		return nil
	}

	md, err := probe(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.diag.Printf("stat failed for modified path %s: %v", path, err)
		}
		return nil
	}
	if md.IsDir {
		return nil
	}

	prev, known := c.store.Lookup(path)

	var entries []audit.Entry
	if known {
		if md.Size != prev.Size {
			entries = append(entries, audit.Entry{
				Time:   now,
				Action: audit.ActionModified,
				Path:   path,
				Size:   &audit.SizeChange{Old: prev.Size, New: md.Size},
			})
		}
		entries = append(entries, c.diffPermOwner(now, path, prev, md)...)
	}

	c.store.Put(state.FileState{
		Path:     path,
		Size:     md.Size,
		Perm:     md.Perm,
		Owner:    md.Owner,
		Inode:    md.Inode,
		Links:    md.Links,
		LastSeen: now,
	})
	return entries
}

// onDeleted reports the deletion and removes every index entry for the path.
func (c *Classifier) onDeleted(now time.Time, path string) []audit.Entry {
	prev, known := c.store.Lookup(path)
	entry := audit.Entry{
		Time:   now,
		Action: audit.ActionDeleted,
		Path:   path,
	}
	if known {
		entry.IsDir = prev.IsDir
	}
	c.store.Delete(path)
	return []audit.Entry{entry}
}

// onMoved re-keys all state from src to dest and reports the move, then
// immediately re-checks permissions and ownership so a move that also
// changed them is reported.
func (c *Classifier) onMoved(now time.Time, src, dest string) []audit.Entry {
	if c.filter.ShouldIgnore(dest) {
		// The destination is outside the observable set; stop tracking the
		// source without reporting on the excluded side.
		c.store.Delete(src)
		return nil
	}

	prev, known := c.store.Lookup(src)
	c.store.Rekey(src, dest)

	entries := []audit.Entry{{
		Time:     now,
		Action:   audit.ActionMoved,
		IsDir:    known && prev.IsDir,
		Path:     src,
		DestPath: dest,
	}}

	if !known || prev.IsDir {
		return entries
	}

	md, err := probe(dest)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.diag.Printf("stat failed for moved path %s: %v", dest, err)
		}
		return entries
	}

	entries = append(entries, c.diffPermOwner(now, dest, prev, md)...)

	moved := prev
	moved.Path = dest
	moved.Perm = md.Perm
	moved.Owner = md.Owner
	moved.Size = md.Size
	moved.LastSeen = now
	c.store.Put(moved)

	return entries
}

// diffPermOwner emits permission and ownership change entries for one path.
func (c *Classifier) diffPermOwner(now time.Time, path string, prev state.FileState, md Metadata) []audit.Entry {
	var entries []audit.Entry
	if md.Perm != prev.Perm {
		entries = append(entries, audit.Entry{
			Time:   now,
			Action: audit.ActionPermissionsChange,
			Path:   path,
			Perm:   &audit.PermChange{Old: prev.Perm, New: md.Perm},
		})
	}
	if !md.Owner.Equal(prev.Owner) {
		entries = append(entries, audit.Entry{
			Time:   now,
			Action: audit.ActionOwnershipChange,
			Path:   path,
			Owner:  &audit.OwnerChange{Old: ownerString(prev.Owner), New: ownerString(md.Owner)},
		})
	}
	return entries
}

// ScanPossibleCopies runs the periodic copy heuristic: any two distinct
// paths created within the window whose sizes differ by less than the
// tolerance are reported once as a possible copy, earlier creation first.
// False positives and negatives are accepted trade-offs of the heuristic.
func (c *Classifier) ScanPossibleCopies(now time.Time) []audit.Entry {
	recent := c.store.RecentCreations(now, c.cfg.CopyWindow)
	sort.Slice(recent, func(i, j int) bool {
		if recent[i].Created.Equal(recent[j].Created) {
			return recent[i].Path < recent[j].Path
		}
		return recent[i].Created.Before(recent[j].Created)
	})

	live := make(map[string]bool, len(recent))
	for _, rc := range recent {
		live[rc.Path] = true
	}
	for key := range c.reportedPairs {
		a, b := splitPairKey(key)
		if !live[a] || !live[b] {
			delete(c.reportedPairs, key)
		}
	}

	var entries []audit.Entry
	for i := 0; i < len(recent); i++ {
		for j := i + 1; j < len(recent); j++ {
			a, b := recent[i], recent[j]
			if sizeDiff(a.Size, b.Size) >= c.cfg.CopyTolerance {
				continue
			}
			key := pairKey(a.Path, b.Path)
			if c.reportedPairs[key] {
				continue
			}
			c.reportedPairs[key] = true
			entries = append(entries, audit.Entry{
				Time:     now,
				Action:   audit.ActionPossibleCopy,
				Path:     a.Path,
				DestPath: b.Path,
			})
		}
	}
	return entries
}

func sizeDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

func splitPairKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
