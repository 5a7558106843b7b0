package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/marcelocantos/shrun/internal/audit"
	"github.com/marcelocantos/shrun/internal/cli"
	"github.com/marcelocantos/shrun/internal/client"
	"github.com/marcelocantos/shrun/internal/config"
	"github.com/marcelocantos/shrun/internal/daemon"
	"github.com/marcelocantos/shrun/internal/ipc"
	"github.com/marcelocantos/shrun/internal/mcp"
	"github.com/marcelocantos/shrun/internal/shell"
)

var version = "dev"

func main() {
	// Reporter mode must be dispatched before anything else: the child
	// shell invokes it after every command, so it has to stay cheap and
	// must never touch config, audit, or the terminal.
	if len(os.Args) > 2 && os.Args[1] == shell.ReportArg {
		os.Exit(shell.Report(os.Stdout, os.Args[2]))
	}
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		cli.RunHelp(os.Stderr)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shrun: config: %v\n", err)
		return 1
	}

	logger, err := audit.NewLogger(cfg.Audit.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shrun: audit: %v\n", err)
		// Continue without audit logging.
		logger = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch os.Args[1] {
	case "--daemon":
		if err := daemon.New(cfg, logger, cfg.Daemon.IdleTimeoutDuration()).Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shrun: daemon: %v\n", err)
			return 1
		}
		return 0
	case "--mcp":
		if err := mcp.Serve(cfg, logger, version); err != nil {
			fmt.Fprintf(os.Stderr, "shrun: mcp: %v\n", err)
			return 1
		}
		return 0
	case "--audit":
		return cli.RunAudit(os.Stdout, cfg.Audit.Path, os.Args[2:])
	case "--help":
		return cli.RunHelp(os.Stdout)
	case "--version":
		fmt.Printf("shrun %s\n", version)
		return 0
	}

	opts, remote, rest, err := parseRunFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "shrun: %v\n", err)
		return 1
	}
	commands := cli.SplitCommands(rest)
	if len(commands) == 0 {
		fmt.Fprintf(os.Stderr, "shrun: %v\n", shell.ErrNoCommands)
		return 1
	}

	if remote {
		return runRemote(ctx, opts, commands)
	}
	return cli.RunCommands(ctx, cfg, logger, commands, opts, os.Stdin, os.Stdout, os.Stderr)
}

// parseRunFlags consumes leading flags; everything from the first
// non-flag argument on is a command.
func parseRunFlags(args []string) (opts cli.RunOptions, remote bool, rest []string, err error) {
	no := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--shell":
			if i+1 >= len(args) {
				return opts, false, nil, fmt.Errorf("--shell requires a value")
			}
			i++
			v := args[i]
			opts.Shell = &v
		case "--no-check":
			opts.Check = &no
		case "--no-output":
			opts.ShowOutput = &no
		case "--no-echo":
			opts.ShowCommands = &no
		case "--allow":
			opts.Allow = true
		case "--remote":
			remote = true
		default:
			if strings.HasPrefix(args[i], "--") {
				return opts, false, nil, fmt.Errorf("unknown flag %s (see shrun --help)", args[i])
			}
			return opts, remote, args[i:], nil
		}
	}
	return opts, remote, nil, nil
}

func runRemote(ctx context.Context, opts cli.RunOptions, commands []string) int {
	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shrun: %v\n", err)
		return 2
	}
	conn, err := client.ConnectOrSpawn(ctx, exe)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shrun: %v\n", err)
		return 2
	}
	defer conn.Close()

	cleanup := client.ForwardSignals(conn)
	defer cleanup()

	cwd, _ := os.Getwd()
	req := &ipc.Request{
		Commands:     commands,
		Check:        opts.Check,
		ShowOutput:   opts.ShowOutput,
		ShowCommands: opts.ShowCommands,
		Allow:        opts.Allow,
		Cwd:          cwd,
		Env:          ipc.CaptureEnv(),
	}
	if opts.Shell != nil {
		req.Shell = *opts.Shell
	}

	result, err := client.Relay(ctx, conn, req, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shrun: %v\n", err)
		return 2
	}
	if result.Error != "" {
		fmt.Fprintf(os.Stderr, "shrun: %s\n", result.Error)
	}
	return result.Code
}
