//go:build !unix

package client

import "os/exec"

func setSysProcAttr(cmd *exec.Cmd) {}
