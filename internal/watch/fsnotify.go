package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FsnotifySource is a Source backed by fsnotify. fsnotify watches are not
// recursive, so the source walks each root at start and adds a watch for
// every directory, then adds watches for directories created later.
//
// fsnotify cannot pair a Rename with the Create it produces at the new name,
// so renames surface as a Deleted raw event followed by an independent
// Created raw event. Sources that can report pairs emit OpMoved instead.
type FsnotifySource struct {
	watcher *fsnotify.Watcher
	events  chan RawEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewFsnotifySource creates an unstarted fsnotify-backed source.
func NewFsnotifySource() (*FsnotifySource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FsnotifySource{
		watcher: watcher,
		events:  make(chan RawEvent, 256),
		errors:  make(chan error, 16),
		done:    make(chan struct{}),
	}, nil
}

// Start walks each root and registers a watch for it and every directory
// beneath it, then begins translating fsnotify events into RawEvents.
// It returns an error if any root cannot be watched.
func (s *FsnotifySource) Start(roots []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("source already running")
	}
	if len(roots) == 0 {
		return fmt.Errorf("no watchable roots")
	}

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
		if err := s.addRecursive(absRoot); err != nil {
			return fmt.Errorf("failed to watch root %s: %w", absRoot, err)
		}
	}

	s.running = true
	s.wg.Add(1)
	go s.translate()
	return nil
}

// addRecursive registers watches for dir and every directory beneath it.
// Subtrees that vanish mid-walk are skipped rather than failing the start.
func (s *FsnotifySource) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A subtree may vanish mid-walk; a missing root is fatal.
			if path != dir && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return s.watcher.Add(path)
	})
}

// Events returns the raw event stream.
func (s *FsnotifySource) Events() <-chan RawEvent { return s.events }

// Errors returns non-fatal backend errors.
func (s *FsnotifySource) Errors() <-chan error { return s.errors }

// Close stops translation and releases all watches.
func (s *FsnotifySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return s.watcher.Close()
	}
	s.running = false
	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()
	close(s.events)
	return err
}

// translate converts fsnotify events to RawEvents until Close.
func (s *FsnotifySource) translate() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.report(err)
		}
	}
}

// handle maps one fsnotify event onto the raw event model.
func (s *FsnotifySource) handle(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		isDir := false
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			isDir = true
			// New directory: watch it so its contents are covered too.
			if err := s.watcher.Add(ev.Name); err != nil {
				s.report(fmt.Errorf("failed to watch new directory %s: %w", ev.Name, err))
			}
		}
		s.emit(RawEvent{Path: ev.Name, Op: OpCreated, IsDir: isDir})
	case ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Chmod):
		isDir := false
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			isDir = true
		}
		s.emit(RawEvent{Path: ev.Name, Op: OpModified, IsDir: isDir})
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// The entry is already gone; IsDir is unknowable here and left false.
		s.emit(RawEvent{Path: ev.Name, Op: OpDeleted})
	}
}

// emit delivers an event without blocking the translate loop; under sustained
// overload events are dropped, which consumers must tolerate anyway.
func (s *FsnotifySource) emit(ev RawEvent) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *FsnotifySource) report(err error) {
	select {
	case s.errors <- err:
	default:
	}
}
