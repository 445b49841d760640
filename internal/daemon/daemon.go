// Package daemon wires the watch source, classifier, and log lifecycle into
// the long-running monitoring process.
//
// One goroutine owns the classifier and state store and processes the raw
// event stream sequentially; the copy-heuristic and rotation timers fire on
// the same select loop, so no locking is needed around per-path state. The
// log writer carries its own lock for the rotate-truncate critical section.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"watchdog/internal/audit"
	"watchdog/internal/classify"
	"watchdog/internal/config"
	"watchdog/internal/console"
	"watchdog/internal/exclude"
	"watchdog/internal/pathset"
	"watchdog/internal/state"
	"watchdog/internal/watch"
)

// Daemon owns the monitoring pipeline for one process.
type Daemon struct {
	cfg        *config.Configuration
	source     watch.Source
	store      *state.Store
	classifier *classify.Classifier
	writer     *audit.Writer
	sweeper    *audit.Sweeper
	console    *console.Console
	logger     *log.Logger
}

// New builds a Daemon from validated configuration. cons and logger may be
// nil; diagnostics then go to stderr.
func New(cfg *config.Configuration, source watch.Source, cons *console.Console, logger *log.Logger) (*Daemon, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[watchdogd] ", log.LstdFlags)
	}
	if cons == nil {
		cons = console.New(console.Config{})
	}

	writer, err := audit.NewWriter(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open live log: %w", err)
	}

	filter := exclude.New(cfg.ExcludePrefixes, cfg.LogPath)
	store := state.NewStore()
	classifierCfg := classify.Config{
		CopyWindow:    cfg.CopyWindow(),
		CopyTolerance: uint64(cfg.CopyToleranceBytes),
	}

	return &Daemon{
		cfg:        cfg,
		source:     source,
		store:      store,
		classifier: classify.New(store, filter, classifierCfg, logger),
		writer:     writer,
		sweeper:    audit.NewSweeper(cfg.LogPath, cfg.Retention()),
		console:    cons,
		logger:     logger,
	}, nil
}

// Run resolves the watch roots, starts the source, and processes events
// until ctx is cancelled. Failure to establish the watch is fatal and is
// returned; every later per-event or per-rotation error is contained and
// reported as a diagnostic.
func (d *Daemon) Run(ctx context.Context) error {
	roots := pathset.Resolve(d.cfg.WatchRoots)
	if len(roots) == 0 {
		d.writer.Close()
		return fmt.Errorf("no watchable roots among %v", d.cfg.WatchRoots)
	}

	if err := d.source.Start(roots); err != nil {
		d.writer.Close()
		return fmt.Errorf("failed to start watch source: %w", err)
	}
	defer d.source.Close()
	defer d.writer.Close()

	d.append(audit.Notice(time.Now(), "file integrity monitoring started"))
	d.console.Status("watching %d roots, logging to %s", len(roots), d.writer.Path())

	heuristic := time.NewTicker(d.cfg.CopyWindow())
	defer heuristic.Stop()
	rotation := time.NewTicker(d.cfg.RotationInterval())
	defer rotation.Stop()

	events := d.source.Events()
	errs := d.source.Errors()

	for {
		select {
		case <-ctx.Done():
			// Stop consuming new raw events; anything already written to
			// the live log stays written.
			d.append(audit.Notice(time.Now(), "file integrity monitoring stopped"))
			d.console.Status("shutting down")
			return nil

		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("watch source closed unexpectedly")
			}
			for _, entry := range d.classifier.Process(time.Now(), ev) {
				d.append(entry)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			d.logger.Printf("watch source error: %v", err)

		case <-heuristic.C:
			for _, entry := range d.classifier.ScanPossibleCopies(time.Now()) {
				d.append(entry)
			}

		case <-rotation.C:
			d.rotateAndSweep(time.Now())
		}
	}
}

// append writes one entry, containing log I/O failures as diagnostics so
// the watch loop keeps running.
func (d *Daemon) append(entry audit.Entry) {
	if err := d.writer.Append(entry); err != nil {
		d.logger.Printf("failed to append log entry: %v", err)
		return
	}
	d.console.Echo(entry.Format())
}

// rotateAndSweep runs one rotation cycle. Both steps are idempotent no-ops
// when there is nothing to act on, and neither can stop the daemon.
func (d *Daemon) rotateAndSweep(now time.Time) {
	archive, err := d.writer.Rotate(now)
	if err != nil {
		d.logger.Printf("rotation failed: %v", err)
	} else if archive != "" {
		d.append(audit.Notice(now, fmt.Sprintf("log compressed and saved as %s", archive)))
	}

	removed, err := d.sweeper.Sweep(now)
	if err != nil {
		d.logger.Printf("retention sweep failed: %v", err)
	}
	for _, path := range removed {
		d.append(audit.Notice(now, fmt.Sprintf("deleted old log archive %s", path)))
	}
}
