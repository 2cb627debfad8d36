// Package diag is the warning and fatal-error seam shared by every bsvm
// component.
//
// Components never print or exit on their own. Non-fatal conditions (an
// unseen evaluation label, an out-of-range element read) go to Sink.Warn.
// Fatal conditions are passed through Sink.Fatal, whose result the component
// returns to its caller. The default policy raises the error to the caller;
// ExitOnFatal swaps that for "log and terminate the process", which is what a
// command-line front end wants.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Sink receives diagnostics from the core.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Warn reports a non-fatal condition.
	Warn(msg string, args ...any)

	// Fatal reports an unrecoverable condition. The returned error is what
	// the component hands back to its caller.
	Fatal(err error) error
}

// Default returns the sink used when none is configured.
func Default() Sink {
	return NewSlogSink(nil)
}

// SlogSink writes diagnostics to a slog.Logger and raises fatal errors to the caller.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink on top of logger.
// If logger is nil, slog.Default() is used.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Warn implements Sink.
func (s *SlogSink) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Fatal implements Sink.
func (s *SlogSink) Fatal(err error) error {
	if err != nil {
		s.logger.LogAttrs(context.Background(), slog.LevelError, "fatal", slog.Any("error", err))
	}
	return err
}

// Discard drops warnings and raises fatal errors unchanged.
var Discard Sink = discard{}

type discard struct{}

func (discard) Warn(string, ...any)    {}
func (discard) Fatal(err error) error { return err }

// Func adapts a plain string emitter to a Sink.
// Warnings are formatted as "msg key=value ...". Fatal errors are emitted
// with an "error: " prefix and raised to the caller.
type Func func(text string)

// Warn implements Sink.
func (f Func) Warn(msg string, args ...any) {
	f(format(msg, args))
}

// Fatal implements Sink.
func (f Func) Fatal(err error) error {
	if err != nil {
		f("error: " + err.Error())
	}
	return err
}

func format(msg string, args []any) string {
	for i := 0; i+1 < len(args); i += 2 {
		msg += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		msg += fmt.Sprintf(" %v", args[len(args)-1])
	}
	return msg
}

// exitSink terminates the process on Fatal after delegating the report.
type exitSink struct {
	Sink
	exit func(code int)
	once sync.Once
}

// ExitOnFatal wraps s so that Fatal reports through s and then exits with status 1.
func ExitOnFatal(s Sink) Sink {
	return &exitSink{Sink: s, exit: os.Exit}
}

// Fatal implements Sink.
func (e *exitSink) Fatal(err error) error {
	if err == nil {
		return nil
	}
	err = e.Sink.Fatal(err)
	e.once.Do(func() { e.exit(1) })
	return err
}

// Recorder collects diagnostics in memory. It is intended for tests.
type Recorder struct {
	mu       sync.Mutex
	warnings []string
	fatals   []error
}

// Warn implements Sink.
func (r *Recorder) Warn(msg string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, format(msg, args))
}

// Fatal implements Sink.
func (r *Recorder) Fatal(err error) error {
	if err == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fatals = append(r.fatals, err)
	return err
}

// Warnings returns a copy of the recorded warnings.
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// Fatals returns a copy of the recorded fatal errors.
func (r *Recorder) Fatals() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.fatals...)
}
