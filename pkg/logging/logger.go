// Package logging provides the leveled console log used by every component.
package logging

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/fatih/color"
)

// Logger defines the contract for logging operations with different severity levels.
type Logger interface {
	// Debug logs a diagnostic message; dropped unless verbose output is enabled.
	Debug(msg string, args ...interface{})
	// Info logs an informational message with optional formatted arguments.
	Info(msg string, args ...interface{})
	// Error logs an error message with optional formatted arguments.
	Error(msg string, args ...interface{})
}

var (
	tagDebug = color.New(color.FgHiBlack)
	tagInfo  = color.New(color.FgHiCyan)
	tagError = color.New(color.FgHiRed, color.Bold)
)

// StdLogger implements the Logger interface using Go's standard log package.
type StdLogger struct {
	logger  *log.Logger
	verbose bool
}

// NewStdLogger creates a new StdLogger instance wrapping the provided standard logger.
func NewStdLogger(l *log.Logger, verbose bool) *StdLogger {
	return &StdLogger{logger: l, verbose: verbose}
}

// New creates a StdLogger writing timestamped lines to w.
func New(w io.Writer, verbose bool) *StdLogger {
	return NewStdLogger(log.New(w, "", log.LstdFlags), verbose)
}

// Debug logs a message with DEBUG prefix when verbose output is enabled.
func (l *StdLogger) Debug(msg string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.logger.Printf("%s %s", tagDebug.Sprint("DEBUG:"), fmt.Sprintf(msg, args...))
}

// Info logs an informational message with INFO prefix using the underlying standard logger.
func (l *StdLogger) Info(msg string, args ...interface{}) {
	l.logger.Printf("%s %s", tagInfo.Sprint("INFO:"), fmt.Sprintf(msg, args...))
}

// Error logs an error message with ERROR prefix using the underlying standard logger.
func (l *StdLogger) Error(msg string, args ...interface{}) {
	l.logger.Printf("%s %s", tagError.Sprint("ERROR:"), fmt.Sprintf(msg, args...))
}

// Entry is a single line captured by Recorder.
type Entry struct {
	Level   string
	Message string
}

// Recorder is a Logger that keeps every formatted line in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) add(level, msg string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: fmt.Sprintf(msg, args...)})
}

// Debug records a DEBUG entry.
func (r *Recorder) Debug(msg string, args ...interface{}) { r.add("DEBUG", msg, args...) }

// Info records an INFO entry.
func (r *Recorder) Info(msg string, args ...interface{}) { r.add("INFO", msg, args...) }

// Error records an ERROR entry.
func (r *Recorder) Error(msg string, args ...interface{}) { r.add("ERROR", msg, args...) }

// Entries returns a copy of the recorded lines.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry{}, r.entries...)
}

// Errors returns the messages of recorded ERROR entries.
func (r *Recorder) Errors() []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level == "ERROR" {
			out = append(out, e.Message)
		}
	}
	return out
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}

var (
	_ Logger = (*StdLogger)(nil)
	_ Logger = (*Recorder)(nil)
	_ Logger = Nop{}
)
