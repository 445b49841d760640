package audit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer appends structured entries to the live log file.
//
// The mutex serializes appends against the rotate-truncate critical section,
// so an entry is never lost between the archive copy and the truncate even
// when rotation runs off the event-processing goroutine.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewWriter opens (creating if absent) the live log file for appending.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open live log: %w", err)
	}

	return &Writer{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Append writes one entry as a single line and flushes it to disk, so the
// entry is visible to the next rotation.
func (w *Writer) Append(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendLocked(e)
}

func (w *Writer) appendLocked(e Entry) error {
	if _, err := w.writer.WriteString(e.Format()); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush entry: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync entry to disk: %w", err)
	}
	return nil
}

// Path returns the live log file path.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes buffered data and closes the live log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close live log: %w", err)
	}
	return nil
}
