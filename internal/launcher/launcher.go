// Package launcher starts the binary behind a selected match.
package launcher

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/google/shlex"

	"github.com/dshills/binlocate/pkg/types"
)

// ErrNoBinary is returned for a correlation without a binary path
var ErrNoBinary = errors.New("correlation has no binary path")

// Command builds the command running c's binary with argLine split into
// arguments by POSIX shell rules. No shell is involved.
func Command(c types.Correlation, argLine string) (*exec.Cmd, error) {
	if c.BinaryPath == "" {
		return nil, ErrNoBinary
	}

	args, err := shlex.Split(argLine)
	if err != nil {
		return nil, fmt.Errorf("splitting arguments: %w", err)
	}

	// Nil stdio is connected to the null device
	return exec.Command(c.BinaryPath, args...), nil
}

// Launch starts c's binary detached from the caller and returns its pid.
// The process runs in its own session with output discarded; it is reaped
// in the background once it exits.
func Launch(c types.Correlation, argLine string) (int, error) {
	cmd, err := Command(c, argLine)
	if err != nil {
		return 0, err
	}

	detach(cmd)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting %s: %w", c.BinaryPath, err)
	}

	go func() { _ = cmd.Wait() }()

	return cmd.Process.Pid, nil
}
