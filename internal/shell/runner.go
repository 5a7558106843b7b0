package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/muesli/termenv"
)

// Options controls a single Run call. The zero value is not useful:
// ShellPath must be a resolved executable path.
type Options struct {
	// ShellPath is the resolved shell executable that runs the commands.
	ShellPath string
	// Check aborts the remaining commands and returns a *CommandError
	// when any pipeline stage exits non-zero.
	Check bool
	// ShowOutput echoes visible output live as it is read.
	ShowOutput bool
	// ShowCommands prints the original command list before execution.
	// The assembled script is never printed.
	ShowCommands bool
	// Stdout receives the live echo and the command line echo.
	// Defaults to os.Stdout.
	Stdout io.Writer
	// Stdin is wired to the child shell's stdin so commands can prompt.
	// Nil leaves the child without stdin.
	Stdin io.Reader
	// Cwd is the working directory for the child shell. Empty inherits.
	Cwd string
	// Env replaces the child's environment when non-nil.
	Env map[string]string
	// ReporterPath is the status-reporter executable. Defaults to the
	// running binary, which handles the hidden __report mode.
	ReporterPath string
}

// Run executes the command list through the shell at opts.ShellPath and
// returns the visible output together with the last command's per-stage
// exit statuses. The call blocks until the child shell exits.
func Run(ctx context.Context, commands []string, opts Options) (Result, error) {
	reporter := opts.ReporterPath
	if reporter == "" {
		exe, err := os.Executable()
		if err != nil {
			return Result{}, fmt.Errorf("locate reporter executable: %w", err)
		}
		reporter = exe
	}

	d := dialectFor(filepath.Base(opts.ShellPath))
	script, err := assemble(commands, d, opts.Check, reporter)
	if err != nil {
		return Result{}, err
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if opts.ShowCommands {
		// Faint on capable terminals, plain everywhere else.
		o := termenv.NewOutput(stdout)
		fmt.Fprintln(stdout, o.String("Executing: "+strings.Join(commands, "; ")).Faint())
	}

	var echo io.Writer
	if opts.ShowOutput {
		echo = stdout
	}

	mux, err := spawn(ctx, script, opts, echo)
	if err != nil {
		return Result{}, err
	}

	status, pipestatus, err := aggregate(mux.payloads)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Out:        strings.TrimRightFunc(mux.output(), unicode.IsSpace),
		Status:     status,
		PipeStatus: pipestatus,
	}

	if opts.Check {
		for _, s := range pipestatus {
			if s != 0 {
				return res, &CommandError{Result: res}
			}
		}
	}
	return res, nil
}

// spawn starts the shell in script mode with stderr merged into stdout at
// the descriptor level and drives the demultiplexer until the merged stream
// is exhausted, which happens when the child (and anything it spawned that
// inherited the pipe) has exited. Both pipe ends are closed on every path.
func spawn(ctx context.Context, script string, opts Options, echo io.Writer) (*demux, error) {
	cmd := exec.CommandContext(ctx, opts.ShellPath, "-c", script)
	cmd.Stdin = opts.Stdin
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	if opts.Env != nil {
		env := make([]string, 0, len(opts.Env))
		for k, v := range opts.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}
	defer pr.Close()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("start %s: %w", opts.ShellPath, err)
	}
	// The child holds its own copy of the write end; ours must go so the
	// read loop sees EOF when the child exits.
	pw.Close()

	mux := newDemux(echo)
	readErr := mux.run(bufio.NewReader(pr))
	waitErr := cmd.Wait()

	if readErr != nil {
		return nil, fmt.Errorf("read child output: %w", readErr)
	}
	// A non-zero shell exit is expected in check mode (the injected
	// `|| exit` fires); the statuses captured from the payloads are what
	// matters, not the shell's own status.
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return nil, fmt.Errorf("wait for %s: %w", opts.ShellPath, waitErr)
	}
	return mux, nil
}
