package measure

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

// PerfSource measures a command under "perf stat", one invocation per
// trial. The duration_time event becomes the trial duration; every other
// counted event is attached as a Counter.
type PerfSource struct {
	command string
	argv    []string
	events  string
	tmp     *os.File
	index   int64
}

// NewPerfSource prepares a perf-backed source. events is passed straight
// to "perf stat -e"; empty means perf's defaults, which also start up
// faster. The caller owns Close.
func NewPerfSource(command, events string) (*PerfSource, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command string")
	}
	tmp, err := os.CreateTemp("", "tacho_*")
	if err != nil {
		return nil, err
	}
	return &PerfSource{command: command, argv: argv, events: events, tmp: tmp}, nil
}

func (s *PerfSource) Close() error {
	name := s.tmp.Name()
	s.tmp.Close()
	return os.Remove(name)
}

func (s *PerfSource) Warm(ctx context.Context) error {
	_, _, _, err := s.run(ctx)
	return err
}

func (s *PerfSource) Next(ctx context.Context) (Trial, error) {
	counters, exit, elapsed, err := s.run(ctx)
	if err != nil {
		return Trial{}, err
	}
	s.index++
	return perfTrial(s.index, counters, elapsed, exit), nil
}

// perfTrial prefers the duration_time counter for the trial duration.
// An event list without it falls back to the wall-clock time of the
// perf invocation itself, so the run still advances.
func perfTrial(index int64, counters []Counter, elapsed time.Duration, exit int) Trial {
	duration := elapsed
	rest := counters[:0]
	for _, c := range counters {
		if c.Name == "duration_time" {
			duration = time.Duration(c.Value * float64(time.Second))
			continue
		}
		rest = append(rest, c)
	}
	return Trial{
		Index:    index,
		Duration: duration,
		ExitCode: exit,
		Counters: rest,
	}
}

func (s *PerfSource) run(ctx context.Context) ([]Counter, int, time.Duration, error) {
	if err := s.tmp.Truncate(0); err != nil {
		return nil, 0, 0, err
	}

	args := []string{"stat", "-o", s.tmp.Name(), "-x", ","}
	if s.events != "" {
		args = append(args, "-e", s.events)
	}
	args = append(args, "--")
	args = append(args, s.argv...)

	// Hide the target's output so it cannot interfere with the
	// progress display.
	cmd := exec.CommandContext(ctx, "perf", args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	exit := 0
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, 0, 0, &ExecError{Cmd: "perf stat -- " + s.command, Err: err}
		}
		// perf stat propagates the child's exit status.
		exit = exitErr.ExitCode()
	}

	data, err := os.ReadFile(s.tmp.Name())
	if err != nil {
		return nil, 0, 0, err
	}
	return ParsePerfCSV(string(data), ","), exit, elapsed, nil
}

// ParsePerfCSV parses "perf stat -x" output. The fields are: counter
// value, unit (possibly empty), event name, then the counter's run time.
// Values are normalized to seconds where the unit is a time; rows that
// did not count (e.g. "<not counted>") are skipped.
func ParsePerfCSV(text, sep string) []Counter {
	var counters []Counter
	for _, line := range strings.Split(text, "\n") {
		if len(line) < 3 || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, sep)
		if len(fields) <= 3 || fields[0] == "" || fields[2] == "" {
			continue
		}
		value, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}

		c := Counter{Name: fields[2], Value: value, Unit: fields[1]}
		if c.Name == "duration_time" && c.Unit == "" {
			c.Unit = "ns"
		}
		switch c.Unit {
		case "ns":
			c.Unit = "s"
			c.Value /= 1e9
		case "msec":
			c.Unit = "s"
			c.Value /= 1e3
		}
		counters = append(counters, c)
	}
	return counters
}
