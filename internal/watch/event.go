// Package watch abstracts the raw filesystem notification source.
//
// The daemon core consumes a uniform stream of RawEvents; any backend that
// can produce one (platform notification API, polling fallback, test stub)
// satisfies Source without changing the core.
package watch

// Op is the kind of raw filesystem change.
type Op int

const (
	// OpCreated indicates a new filesystem entry appeared.
	OpCreated Op = iota
	// OpModified indicates an existing entry may have changed.
	OpModified
	// OpDeleted indicates an entry was removed.
	OpDeleted
	// OpMoved indicates an entry was renamed; DestPath carries the new name.
	OpMoved
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreated:
		return "created"
	case OpModified:
		return "modified"
	case OpDeleted:
		return "deleted"
	case OpMoved:
		return "moved"
	default:
		return "unknown"
	}
}

// RawEvent is one unprocessed filesystem change notification. Sources may
// coalesce or drop events under load; consumers must tolerate missing and
// duplicate notifications.
type RawEvent struct {
	// Path is the absolute path the change applies to.
	Path string
	// DestPath is the new path for OpMoved events, empty otherwise.
	DestPath string
	// Op is the kind of change.
	Op Op
	// IsDir reports whether the entry is a directory, when the source knows.
	IsDir bool
}

// Source supplies a sequence of raw filesystem notifications for a set of
// watched roots, recursively.
type Source interface {
	// Start establishes the underlying watches. A failure here is fatal to
	// the daemon: without a source it cannot fulfill its purpose.
	Start(roots []string) error
	// Events returns the raw event stream. The channel is closed by Close.
	Events() <-chan RawEvent
	// Errors returns non-fatal backend errors. The watch keeps running.
	Errors() <-chan error
	// Close stops the source and releases its watches.
	Close() error
}
