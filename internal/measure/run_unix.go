//go:build !windows

package measure

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// runCommand spawns argv once and waits for it, returning the clock
// readings and the exit status. Output is discarded so it cannot skew the
// measurement or the progress display.
func runCommand(ctx context.Context, argv []string) (timing, int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	start := time.Now()
	err := cmd.Run()
	tm := timing{real: time.Since(start)}
	if st := cmd.ProcessState; st != nil {
		tm.user = st.UserTime()
		tm.system = st.SystemTime()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return tm, exitErr.ExitCode(), nil
		}
		return timing{}, 0, err
	}
	return tm, 0, nil
}
