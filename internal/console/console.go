// Package console handles operator-facing output for the daemon process:
// startup/shutdown status lines and optional verbose echo of log entries.
package console

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Config holds console output configuration.
type Config struct {
	Verbose   bool      // Echo each log entry to the console
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// DefaultConfig returns a Config with TTY detection against stdout.
func DefaultConfig() Config {
	return Config{
		Verbose:   false,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Console writes operator-facing lines.
type Console struct {
	config Config
}

// New creates a Console, filling in nil writers with the standard streams.
func New(config Config) *Console {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Console{config: config}
}

// Status prints an unconditional status line.
func (c *Console) Status(format string, args ...interface{}) {
	fmt.Fprintf(c.config.Writer, format+"\n", args...)
}

// Echo prints a log line when verbose mode is enabled and output is a
// terminal; a daemon with redirected output stays quiet.
func (c *Console) Echo(line string) {
	if !c.config.Verbose || !c.config.IsTTY {
		return
	}
	fmt.Fprintln(c.config.Writer, line)
}

// Error prints an error line to the error stream.
func (c *Console) Error(format string, args ...interface{}) {
	fmt.Fprintf(c.config.ErrWriter, "Error: "+format+"\n", args...)
}
