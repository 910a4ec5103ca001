// Package measure produces trials: one measured execution of the target
// per call, whether by spawning a process, by running it under perf stat,
// or by reading a measurement stream from a long-lived process.
package measure

import (
	"context"
	"fmt"
	"time"
)

// Counter is one named measurement attached to a trial, e.g. a hardware
// event from perf stat.
type Counter struct {
	Name  string
	Value float64
	Unit  string
}

// Trial is one completed measurement. Immutable once returned.
type Trial struct {
	Index    int64 // assigned at completion, monotonic per source
	Duration time.Duration
	User     time.Duration
	System   time.Duration
	ExitCode int
	Counters []Counter
}

// Source yields one trial per call, blocking until the measurement
// completes.
type Source interface {
	Next(ctx context.Context) (Trial, error)
}

// Warmer is implemented by sources that can run the target without
// producing a trial, to fill caches before measuring.
type Warmer interface {
	Warm(ctx context.Context) error
}

// ExecError means the target could not be invoked at all. It is fatal for
// the whole run. A non-zero exit status is not an ExecError; it is
// recorded on the trial.
type ExecError struct {
	Cmd string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("cannot execute %q: %v", e.Cmd, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Anomaly means one sample was malformed or implausible and has been
// dropped. Non-fatal: the caller counts it and moves on.
type Anomaly struct {
	Line   string
	Reason string
}

func (e *Anomaly) Error() string {
	if e.Line == "" {
		return "discarded measurement: " + e.Reason
	}
	return fmt.Sprintf("discarded measurement %q: %s", e.Line, e.Reason)
}
