package audit

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"time"
)

// ArchiveTimestampFormat names archive segments so they sort
// lexicographically by creation order.
const ArchiveTimestampFormat = "20060102_150405"

// ArchiveName returns the archive segment path for a rotation at ts:
// <livePath>_<YYYYMMDD_HHMMSS>.gz, alongside the live log.
func ArchiveName(livePath string, ts time.Time) string {
	return fmt.Sprintf("%s_%s.gz", livePath, ts.Format(ArchiveTimestampFormat))
}

// Rotate copies the live log's current content into a new compressed archive
// segment and truncates the live log to empty. It holds the writer lock for
// the whole copy-then-truncate sequence, so no entry written concurrently can
// fall between the copy and the truncate.
//
// When there is nothing to rotate (missing or empty live log) it is a no-op
// and returns an empty archive path.
func (w *Writer) Rotate(now time.Time) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush before rotation: %w", err)
	}

	info, err := os.Stat(w.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat live log: %w", err)
	}
	if info.Size() == 0 {
		return "", nil
	}

	archivePath := ArchiveName(w.path, now)
	if err := compressFile(w.path, archivePath); err != nil {
		return "", err
	}

	if err := w.file.Truncate(0); err != nil {
		// The archive exists but the live log still holds the old content;
		// remove the archive so the next rotation does not duplicate it.
		os.Remove(archivePath)
		return "", fmt.Errorf("failed to truncate live log: %w", err)
	}

	return archivePath, nil
}

// compressFile copies src into a new gzip archive at dst. Archive segments
// are immutable once written.
func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open live log for rotation: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create archive segment: %w", err)
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to compress live log: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to close archive: %w", err)
	}
	return nil
}
