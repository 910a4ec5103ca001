package measure

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"runtime"

	"github.com/google/shlex"
)

// DefaultShell returns the intermediate shell used unless -N is given.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	return "/bin/sh"
}

func shellSwitch() string {
	if runtime.GOOS == "windows" {
		return "/c"
	}
	return "-c"
}

// BuildArgv turns a command string into the argv to execute, wrapping it
// in the given shell unless useShell is false.
func BuildArgv(command string, useShell bool, shell string) ([]string, error) {
	if useShell && shell != "" {
		return []string{shell, shellSwitch(), command}, nil
	}
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command string")
	}
	return argv, nil
}

// RunSetup runs a command once before benchmarking starts, discarding its
// output. A failing setup command is fatal.
func RunSetup(ctx context.Context, command string) error {
	argv, err := shlex.Split(command)
	if err != nil {
		return err
	}
	if len(argv) == 0 {
		return errors.New("empty setup command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}
