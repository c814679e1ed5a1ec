//go:build unix

package launcher

import (
	"os/exec"
	"syscall"
)

// detach starts the process in its own session so it outlives the caller
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
