package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/marcelocantos/shrun/internal/audit"
	"github.com/marcelocantos/shrun/internal/config"
	"github.com/marcelocantos/shrun/internal/ipc"
	"github.com/marcelocantos/shrun/internal/policy"
	"github.com/marcelocantos/shrun/internal/shell"
)

// RunOptions carries the per-invocation flags parsed by main. Pointer
// fields are nil when the flag was not given, so the resolution cascade
// falls through to the environment, the config file and the hard default,
// in that order.
type RunOptions struct {
	Shell        *string
	Check        *bool
	ShowOutput   *bool
	ShowCommands *bool
	Allow        bool
}

// resolved is the fully cascaded option set for one execution.
type resolved struct {
	shellPath    string
	check        bool
	showOutput   bool
	showCommands bool
}

// SplitCommands expands each argument into one command per line, dropping
// blank lines. `shrun "cd /tmp\nls"` behaves like `shrun "cd /tmp" "ls"`.
func SplitCommands(args []string) []string {
	var commands []string
	for _, arg := range args {
		for _, line := range strings.Split(arg, "\n") {
			if strings.TrimSpace(line) != "" {
				commands = append(commands, line)
			}
		}
	}
	return commands
}

// Execute resolves options against the process environment and runs the
// command list in cwd, returning the full result. Callers that want
// exit-code semantics use RunCommands instead.
func Execute(ctx context.Context, cfg *config.Config, logger *audit.Logger, commands []string, opts RunOptions, stdin io.Reader, stdout io.Writer, cwd string) (shell.Result, error) {
	r, err := resolveOptions(cfg, opts, os.LookupEnv, shell.ParentShell)
	if err != nil {
		return shell.Result{}, err
	}
	return execute(ctx, cfg, logger, commands, r, opts.Allow, stdin, stdout, cwd, nil)
}

// RunCommands executes the command list locally and returns the process
// exit code. Check-mode failures propagate the failing status silently;
// everything else is reported on stderr.
func RunCommands(ctx context.Context, cfg *config.Config, logger *audit.Logger, commands []string, opts RunOptions, stdin io.Reader, stdout, stderr io.Writer) int {
	cwd, _ := os.Getwd()
	res, runErr := Execute(ctx, cfg, logger, commands, opts, stdin, stdout, cwd)
	if runErr == nil {
		return res.Status
	}

	var cmdErr *shell.CommandError
	if errors.As(runErr, &cmdErr) {
		// The command's own output already tells the story.
		return cmdErr.Result.Status
	}

	fmt.Fprintf(stderr, "shrun: %v\n", runErr)
	var runnerErr *shell.RunnerError
	if errors.As(runErr, &runnerErr) {
		return 2
	}
	return 1
}

// ExecuteRequest is the daemon-side counterpart of RunCommands: the option
// cascade reads the client's forwarded environment instead of the daemon's
// own, and the outcome is returned as an ExitResult instead of being
// written to stderr.
func ExecuteRequest(ctx context.Context, cfg *config.Config, logger *audit.Logger, req *ipc.Request, stdin io.Reader, stdout io.Writer) ipc.ExitResult {
	lookup := func(name string) (string, bool) {
		v, ok := req.Env[name]
		return v, ok
	}
	parent := func() (string, error) {
		// The daemon's own parentage is meaningless here; the client's
		// SHELL is the nearest equivalent of its parent shell.
		if sh := req.Env["SHELL"]; sh != "" {
			return shell.ResolveShell(sh)
		}
		return "", &shell.ResolutionError{Message: "no shell in request and SHELL not forwarded"}
	}

	opts := RunOptions{
		Check:        req.Check,
		ShowOutput:   req.ShowOutput,
		ShowCommands: req.ShowCommands,
		Allow:        req.Allow,
	}
	if req.Shell != "" {
		opts.Shell = &req.Shell
	}

	r, err := resolveOptions(cfg, opts, lookup, parent)
	if err != nil {
		return ipc.ExitResult{Code: 1, Error: err.Error()}
	}

	res, runErr := execute(ctx, cfg, logger, req.Commands, r, req.Allow, stdin, stdout, req.Cwd, req.Env)
	result := ipc.ExitResult{Status: res.Status, PipeStatus: res.PipeStatus}
	if runErr == nil {
		result.Code = res.Status
		return result
	}

	var cmdErr *shell.CommandError
	if errors.As(runErr, &cmdErr) {
		result.Code = cmdErr.Result.Status
		return result
	}

	result.Error = runErr.Error()
	var runnerErr *shell.RunnerError
	if errors.As(runErr, &runnerErr) {
		result.Code = 2
	} else {
		result.Code = 1
	}
	return result
}

// resolveOptions runs the cascade for every option. lookup supplies
// environment variables; parentShell resolves the fallback shell when
// neither the flag, the environment nor the config names one.
func resolveOptions(cfg *config.Config, opts RunOptions, lookup config.LookupFunc, parentShell func() (string, error)) (resolved, error) {
	var r resolved

	envCheck, err := config.EnvBoolFrom(lookup, config.EnvCheck)
	if err != nil {
		return r, err
	}
	envShowOutput, err := config.EnvBoolFrom(lookup, config.EnvShowOutput)
	if err != nil {
		return r, err
	}
	envShowCommands, err := config.EnvBoolFrom(lookup, config.EnvShowCommands)
	if err != nil {
		return r, err
	}

	r.check = config.Resolve(opts.Check, envCheck, cfg.Check, true)
	r.showOutput = config.Resolve(opts.ShowOutput, envShowOutput, cfg.ShowOutput, true)
	r.showCommands = config.Resolve(opts.ShowCommands, envShowCommands, cfg.ShowCommands, true)

	var cfgShell *string
	if cfg.Shell != "" {
		cfgShell = &cfg.Shell
	}
	name := config.Resolve(opts.Shell, config.EnvStringFrom(lookup, config.EnvShell), cfgShell, "")
	if name == "" {
		path, err := parentShell()
		if err != nil {
			return r, err
		}
		r.shellPath = path
		return r, nil
	}
	path, err := shell.ResolveShell(name)
	if err != nil {
		return r, err
	}
	r.shellPath = path
	return r, nil
}

// execute runs the validation gauntlet (rules, then the optional policy
// script) and hands the command list to the shell runner. Every run is
// audited, including failed ones.
func execute(ctx context.Context, cfg *config.Config, logger *audit.Logger, commands []string, r resolved, allow bool, stdin io.Reader, stdout io.Writer, cwd string, env map[string]string) (shell.Result, error) {
	rs, err := cfg.CompileRules()
	if err != nil {
		return shell.Result{}, err
	}
	if err := rs.Check(commands, allow); err != nil {
		return shell.Result{}, err
	}
	if cfg.Policy.Script != "" {
		hook, err := policy.Load(cfg.Policy.Script)
		if err != nil {
			return shell.Result{}, err
		}
		if err := hook.Check(commands, r.shellPath); err != nil {
			return shell.Result{}, err
		}
	}

	start := time.Now()
	res, runErr := shell.Run(ctx, commands, shell.Options{
		ShellPath:    r.shellPath,
		Check:        r.check,
		ShowOutput:   r.showOutput,
		ShowCommands: r.showCommands,
		Stdout:       stdout,
		Stdin:        stdin,
		Cwd:          cwd,
		Env:          env,
	})
	logAudit(logger, commands, r.shellPath, res, runErr, time.Since(start), cwd, allow)
	return res, runErr
}

func logAudit(logger *audit.Logger, commands []string, shellPath string, res shell.Result, err error, duration time.Duration, cwd string, allow bool) {
	if logger == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	// Best-effort: a failed audit write must not fail the command.
	_ = logger.Log(commands, shellPath, res.Status, res.PipeStatus, msg, duration, cwd, allow)
}
