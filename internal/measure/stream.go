package measure

import (
	"bufio"
	"context"
	"errors"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

// ErrStreamClosed means the measurement stream ended. The run stops
// normally, like a cancellation, and the report still comes out.
var ErrStreamClosed = errors.New("measurement stream closed")

// StreamSource turns a stream of delimited "timestamp<sep>value" lines
// into synthetic trials, one per line. The value is a duration in
// seconds. Malformed or negative lines surface as Anomaly, which the
// caller discards and counts.
type StreamSource struct {
	sc    *bufio.Scanner
	sep   string
	index int64
	cmd   *exec.Cmd
}

// NewStreamSource reads measurements from r. An empty sep means comma.
func NewStreamSource(r io.Reader, sep string) *StreamSource {
	if sep == "" {
		sep = ","
	}
	return &StreamSource{sc: bufio.NewScanner(r), sep: sep}
}

// StartStream spawns a long-lived command and consumes measurements from
// its stdout. The caller owns Close.
func StartStream(ctx context.Context, command, sep string) (*StreamSource, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, errors.New("empty stream command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &ExecError{Cmd: command, Err: err}
	}
	s := NewStreamSource(pipe, sep)
	s.cmd = cmd
	return s, nil
}

// Next blocks for the next line of the stream. Blank lines and comments
// are skipped silently; a broken line is an Anomaly.
func (s *StreamSource) Next(ctx context.Context) (Trial, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Trial{}, err
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return Trial{}, &ExecError{Cmd: "measurement stream", Err: err}
			}
			return Trial{}, ErrStreamClosed
		}
		line := strings.TrimSpace(s.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, s.sep)
		if len(fields) < 2 {
			return Trial{}, &Anomaly{Line: line, Reason: "expected timestamp" + s.sep + "value"}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return Trial{}, &Anomaly{Line: line, Reason: "unparsable value"}
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return Trial{}, &Anomaly{Line: line, Reason: "implausible duration"}
		}

		s.index++
		return Trial{
			Index:    s.index,
			Duration: time.Duration(v * float64(time.Second)),
		}, nil
	}
}

// Close tears down the owned stream process, if any.
func (s *StreamSource) Close() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	s.cmd.Process.Kill()
	return s.cmd.Wait()
}
