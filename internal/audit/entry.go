// Package audit provides the daemon's append-only change log: structured
// line entries, the live log writer, and the rotation/retention lifecycle.
package audit

import (
	"fmt"
	"strings"
	"time"

	"watchdog/internal/sizefmt"
)

// TimestampFormat is the human-readable timestamp at the head of each line.
const TimestampFormat = "2006-01-02 15:04:05"

// Action identifies the semantic change an entry describes. Consumers rely
// on the action and path being present and parseable.
type Action string

const (
	ActionCreated           Action = "CREATED"
	ActionModified          Action = "MODIFIED"
	ActionDeleted           Action = "DELETED"
	ActionMoved             Action = "MOVED"
	ActionSymlinkCreated    Action = "SYMLINK_CREATED"
	ActionPermissionsChange Action = "PERMISSIONS_CHANGED"
	ActionOwnershipChange   Action = "OWNERSHIP_CHANGED"
	ActionCopyDetected      Action = "COPY_DETECTED"
	ActionHardLinkDetected  Action = "HARD_LINK_DETECTED"
	ActionPossibleCopy      Action = "POSSIBLE_COPY"
	ActionNotice            Action = "NOTICE"
)

// tag returns the cosmetic glyph for an action. Tags are not part of the
// line contract and may change.
func (a Action) tag() string {
	switch a {
	case ActionCreated, ActionSymlinkCreated:
		return "+"
	case ActionModified, ActionPermissionsChange, ActionOwnershipChange:
		return "~"
	case ActionDeleted:
		return "-"
	case ActionMoved:
		return ">"
	case ActionCopyDetected, ActionHardLinkDetected, ActionPossibleCopy:
		return "="
	case ActionNotice:
		return "!"
	default:
		return "?"
	}
}

// SizeChange carries exact old/new byte counts for a MODIFIED entry.
type SizeChange struct {
	Old uint64
	New uint64
}

// Delta returns the signed size change.
func (c SizeChange) Delta() int64 {
	return int64(c.New) - int64(c.Old)
}

// PermChange carries old/new permission bits (mode & 0o7777).
type PermChange struct {
	Old uint32
	New uint32
}

// OwnerChange carries preformatted old/new "user:group" owner strings.
type OwnerChange struct {
	Old string
	New string
}

// Entry is one structured log line. Optional detail fields are nil when the
// action does not carry them.
type Entry struct {
	Time     time.Time
	Action   Action
	IsDir    bool
	Path     string
	DestPath string // moved/copy destination or second possible-copy candidate
	Target   string // symlink target

	Size  *SizeChange
	Perm  *PermChange
	Owner *OwnerChange
	Links uint64 // hard link count, for HARD_LINK_DETECTED
	Note  string // free text for NOTICE entries
}

// marker returns the entry-type marker.
func (e Entry) marker() string {
	if e.IsDir {
		return "[D]"
	}
	return "[F]"
}

// Format renders the entry as a single log line without trailing newline:
//
//	<timestamp> - [<tag>] <ACTION> <marker> <path> [-> <dest>] [(extras)]
func (e Entry) Format() string {
	var b strings.Builder
	b.WriteString(e.Time.Format(TimestampFormat))
	b.WriteString(" - [")
	b.WriteString(e.Action.tag())
	b.WriteString("] ")
	b.WriteString(string(e.Action))
	b.WriteString(" ")
	b.WriteString(e.marker())
	b.WriteString(" ")
	b.WriteString(e.Path)
	if e.DestPath != "" {
		b.WriteString(" -> ")
		b.WriteString(e.DestPath)
	}
	if extras := e.formatExtras(); extras != "" {
		b.WriteString(" (")
		b.WriteString(extras)
		b.WriteString(")")
	}
	return b.String()
}

// formatExtras renders the kind-specific detail fields.
func (e Entry) formatExtras() string {
	var parts []string
	if e.Size != nil {
		parts = append(parts, fmt.Sprintf("delta %s, %s -> %s",
			sizefmt.Delta(e.Size.Delta()), sizefmt.Bytes(e.Size.Old), sizefmt.Bytes(e.Size.New)))
	}
	if e.Perm != nil {
		parts = append(parts, fmt.Sprintf("mode %04o -> %04o", e.Perm.Old, e.Perm.New))
	}
	if e.Owner != nil {
		parts = append(parts, fmt.Sprintf("owner %s -> %s", e.Owner.Old, e.Owner.New))
	}
	if e.Links > 1 {
		parts = append(parts, fmt.Sprintf("links %d", e.Links))
	}
	if e.Target != "" {
		parts = append(parts, fmt.Sprintf("target %s", e.Target))
	}
	if e.Note != "" {
		parts = append(parts, e.Note)
	}
	return strings.Join(parts, "; ")
}

// Notice builds a daemon lifecycle entry.
func Notice(now time.Time, note string) Entry {
	return Entry{Time: now, Action: ActionNotice, Path: "-", Note: note}
}
