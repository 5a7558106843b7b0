package shell

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ResolveShell returns the absolute path of a shell given a name or path
// (e.g. "bash" or "/bin/bash"), following symlinks. The executable must be
// on PATH (or be a valid path) and must look like a shell.
func ResolveShell(shell string) (string, error) {
	p, err := exec.LookPath(shell)
	if err != nil {
		return "", &ResolutionError{Message: fmt.Sprintf(
			"unable to resolve the executable %q: it is either not on PATH or not executable", shell)}
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", &ResolutionError{Message: fmt.Sprintf("resolve %q: %v", p, err)}
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if err := ensureShell(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// ParentShell returns the executable path of the parent process, so that
// commands run under the same shell that invoked this program. On systems
// without /proc (or when the readlink fails) it falls back to $SHELL.
func ParentShell() (string, error) {
	exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", os.Getppid()))
	if err != nil {
		if s := os.Getenv("SHELL"); s != "" {
			return ResolveShell(s)
		}
		return "", &ResolutionError{Message: "unable to determine the parent shell; set SHRUN_SHELL or pass --shell"}
	}
	if err := ensureShell(exe); err != nil {
		return "", err
	}
	return exe, nil
}

// ensureShell rejects executables that are clearly not shells. When a test
// harness or editor is the parent process, the "parent shell" resolves to
// an interpreter that cannot run the assembled script.
func ensureShell(path string) error {
	base := filepath.Base(path)
	for _, prefix := range []string{"python", "node"} {
		if strings.HasPrefix(base, prefix) {
			return &ResolutionError{Message: fmt.Sprintf(
				"process %q is not a shell; provide a shell name or path", base)}
		}
	}
	return nil
}
