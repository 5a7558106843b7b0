package cli

import (
	"fmt"
	"io"

	"github.com/marcelocantos/shrun/internal/config"
)

// RunHelp prints general usage.
func RunHelp(w io.Writer) int {
	fmt.Fprintln(w, "shrun — run shell commands and capture per-stage exit statuses")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  shrun [flags] <command> [<command> ...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Each argument is one command; arguments containing newlines are split")
	fmt.Fprintln(w, "into one command per line. Commands run in a single shell invocation,")
	fmt.Fprintln(w, "so `cd` and variable assignments carry over to later commands.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fmt.Fprintln(w, "  --shell <name|path>  shell to run with (default: the parent shell)")
	fmt.Fprintln(w, "  --no-check           keep going past failing commands")
	fmt.Fprintln(w, "  --no-output          do not echo command output")
	fmt.Fprintln(w, "  --no-echo            do not print the command line before running")
	fmt.Fprintln(w, "  --allow              bypass config rules (hardcoded rules still apply)")
	fmt.Fprintln(w, "  --remote             execute through the daemon")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "modes:")
	fmt.Fprintln(w, "  shrun --daemon                       run the execution daemon")
	fmt.Fprintln(w, "  shrun --mcp                          serve the MCP run_command tool on stdio")
	fmt.Fprintln(w, "  shrun --audit <verify|show|tail [n]> audit log operations")
	fmt.Fprintln(w, "  shrun --version                      show version")
	fmt.Fprintln(w, "  shrun --help                         show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "environment:")
	fmt.Fprintf(w, "  %s, %s, %s, %s\n",
		config.EnvShell, config.EnvCheck, config.EnvShowOutput, config.EnvShowCommands)
	fmt.Fprintf(w, "  config file: %s\n", config.ConfigPath())
	return 0
}
