package classify

import (
	"os"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"

	"watchdog/internal/state"
)

// UnknownName is the sentinel used when uid/gid resolution fails.
const UnknownName = "unknown"

// Metadata is one observation of a path's filesystem metadata.
type Metadata struct {
	Size      uint64
	Perm      uint32
	Owner     state.Owner
	Inode     uint64
	Links     uint64
	IsDir     bool
	IsSymlink bool
	SymlinkTo string
}

// probe inspects path without following symlinks. The caller decides how to
// treat a path that vanished between notification and inspection.
func probe(path string) (Metadata, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		if err == unix.ENOENT {
			return Metadata{}, os.ErrNotExist
		}
		return Metadata{}, err
	}

	md := Metadata{
		Size:  uint64(st.Size),
		Perm:  uint32(st.Mode) & 0o7777,
		Owner: resolveOwner(st.Uid, st.Gid),
		Inode: st.Ino,
		Links: uint64(st.Nlink),
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		md.IsDir = true
	case unix.S_IFLNK:
		md.IsSymlink = true
		if target, err := os.Readlink(path); err == nil {
			md.SymlinkTo = target
		}
	}

	return md, nil
}

// resolveOwner maps numeric ids to names, falling back to the sentinel when
// the ids cannot be resolved.
func resolveOwner(uid, gid uint32) state.Owner {
	o := state.Owner{UID: uid, GID: gid, User: UnknownName, Group: UnknownName}
	if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
		o.User = u.Username
	}
	if g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10)); err == nil {
		o.Group = g.Name
	}
	return o
}

// ownerString renders an owner as "user:group" for log display.
func ownerString(o state.Owner) string {
	return o.User + ":" + o.Group
}
