package measure

import (
	"context"
	"time"
)

// timing holds the clock readings for one completed run.
type timing struct {
	real   time.Duration
	user   time.Duration
	system time.Duration
}

// ProcessSource measures a command by spawning one process per trial and
// timing it to completion. Trials never run concurrently; wall-clock
// measurement needs the machine to itself.
type ProcessSource struct {
	command string
	argv    []string
	index   int64
}

// NewProcessSource prepares a source for the given command string,
// wrapped in a shell unless useShell is false.
func NewProcessSource(command string, useShell bool, shell string) (*ProcessSource, error) {
	argv, err := BuildArgv(command, useShell, shell)
	if err != nil {
		return nil, err
	}
	return &ProcessSource{command: command, argv: argv}, nil
}

// Warm runs the command once without producing a trial.
func (s *ProcessSource) Warm(ctx context.Context) error {
	if _, _, err := runCommand(ctx, s.argv); err != nil {
		return &ExecError{Cmd: s.command, Err: err}
	}
	return nil
}

// Next runs the command once and returns the measured trial. A non-zero
// exit status is recorded on the trial; only a spawn failure is an error.
func (s *ProcessSource) Next(ctx context.Context) (Trial, error) {
	tm, exit, err := runCommand(ctx, s.argv)
	if err != nil {
		return Trial{}, &ExecError{Cmd: s.command, Err: err}
	}
	s.index++
	return Trial{
		Index:    s.index,
		Duration: tm.real,
		User:     tm.user,
		System:   tm.system,
		ExitCode: exit,
	}, nil
}
