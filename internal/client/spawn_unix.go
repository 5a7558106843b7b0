//go:build unix

package client

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the daemon into its own session so it survives
// the spawning client and ignores its controlling terminal.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
