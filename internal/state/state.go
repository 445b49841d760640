// Package state holds the daemon's last-known metadata per watched path.
//
// The Store is confined to the single event-processing goroutine, so it is
// deliberately unsynchronized. Do not share it across goroutines.
package state

import "time"

// Owner identifies a file's owner by numeric ids plus resolved names.
// Names fall back to "unknown" when uid/gid resolution fails.
type Owner struct {
	UID   uint32
	GID   uint32
	User  string
	Group string
}

// Equal compares owners by numeric ids only; names are display aids.
func (o Owner) Equal(other Owner) bool {
	return o.UID == other.UID && o.GID == other.GID
}

// FileState is the last-known metadata snapshot for one path. Sizes are
// exact byte counts; permission bits are mode & 0o7777.
type FileState struct {
	Path     string
	Size     uint64
	Perm     uint32
	Owner    Owner
	Inode    uint64
	Links    uint64
	IsDir    bool // tracked for type display only, never size/owner diffed
	LastSeen time.Time
}

// RecentCreation is a short-lived record supporting the possible-copy
// heuristic. Entries older than the configured window are not actionable.
type RecentCreation struct {
	Path    string
	Created time.Time
	Size    uint64
}

// Store is the in-memory authoritative record: FileState per path, an
// inode index for copy/hard-link disambiguation, and recent creations.
type Store struct {
	files  map[string]FileState
	inodes map[uint64]string // inode -> first-observed path
	recent map[string]RecentCreation
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		files:  make(map[string]FileState),
		inodes: make(map[uint64]string),
		recent: make(map[string]RecentCreation),
	}
}

// Lookup returns the FileState for path, if known.
func (s *Store) Lookup(path string) (FileState, bool) {
	fs, ok := s.files[path]
	return fs, ok
}

// Put records or replaces the FileState for its path.
func (s *Store) Put(fs FileState) {
	s.files[fs.Path] = fs
}

// Delete removes all trace of path: its FileState, its inode index entry
// when it is the recorded owner, and any recent-creation record.
func (s *Store) Delete(path string) {
	if fs, ok := s.files[path]; ok {
		if owner, ok := s.inodes[fs.Inode]; ok && owner == path {
			delete(s.inodes, fs.Inode)
		}
	}
	delete(s.files, path)
	delete(s.recent, path)
}

// Rekey moves every record for src under dest. After it returns no entry
// is visible under src in any index and at most one exists under dest.
func (s *Store) Rekey(src, dest string) {
	if fs, ok := s.files[src]; ok {
		delete(s.files, src)
		fs.Path = dest
		s.files[dest] = fs
		if owner, ok := s.inodes[fs.Inode]; ok && owner == src {
			s.inodes[fs.Inode] = dest
		}
	}
	if rc, ok := s.recent[src]; ok {
		delete(s.recent, src)
		rc.Path = dest
		s.recent[dest] = rc
	}
}

// InodeOwner returns the first-observed path for inode, if recorded.
func (s *Store) InodeOwner(inode uint64) (string, bool) {
	p, ok := s.inodes[inode]
	return p, ok
}

// ClaimInode records path as the first-observed owner of inode unless the
// inode already has an owner.
func (s *Store) ClaimInode(inode uint64, path string) {
	if _, ok := s.inodes[inode]; !ok {
		s.inodes[inode] = path
	}
}

// RecordRecent stores a recent-creation record for the heuristic scan.
func (s *Store) RecordRecent(path string, size uint64, created time.Time) {
	s.recent[path] = RecentCreation{Path: path, Created: created, Size: size}
}

// RecentCreations returns all live recent-creation records, discarding any
// older than window relative to now.
func (s *Store) RecentCreations(now time.Time, window time.Duration) []RecentCreation {
	out := make([]RecentCreation, 0, len(s.recent))
	for path, rc := range s.recent {
		if now.Sub(rc.Created) > window {
			delete(s.recent, path)
			continue
		}
		out = append(out, rc)
	}
	return out
}

// Len returns the number of tracked paths.
func (s *Store) Len() int {
	return len(s.files)
}
