// Package mcp exposes command execution as an MCP tool over stdio, so
// agent hosts can run commands and read per-stage exit statuses without
// shelling out themselves.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/shrun/internal/audit"
	"github.com/marcelocantos/shrun/internal/cli"
	"github.com/marcelocantos/shrun/internal/config"
	"github.com/marcelocantos/shrun/internal/shell"
)

// Serve runs an MCP server on stdio exposing the run_command tool. Blocks
// until the client disconnects.
func Serve(cfg *config.Config, logger *audit.Logger, version string) error {
	s := server.NewMCPServer("shrun", version, server.WithToolCapabilities(false))

	tool := mcp.NewTool("run_command",
		mcp.WithDescription("Run shell commands and capture the exit status of every pipeline stage. "+
			"Returns JSON with the merged output (out), the overall status, and the per-stage pipestatus of the last command."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Command to run. Newlines separate multiple commands; all commands share one shell invocation, so cd and variable assignments carry over."),
		),
		mcp.WithString("shell",
			mcp.Description("Shell name or path. Defaults to the configured or parent shell."),
		),
		mcp.WithBoolean("check",
			mcp.Description("Stop at the first failing command (default true)."),
		),
		mcp.WithString("cwd",
			mcp.Description("Working directory for the commands."),
		),
	)

	s.AddTool(tool, RunCommandHandler(cfg, logger))
	return server.ServeStdio(s)
}

// RunCommandHandler builds the run_command tool handler. Exported for
// tests; Serve wires it to the stdio server.
func RunCommandHandler(cfg *config.Config, logger *audit.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		command, err := req.RequireString("command")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		commands := cli.SplitCommands([]string{command})
		if len(commands) == 0 {
			return mcp.NewToolResultError(shell.ErrNoCommands.Error()), nil
		}

		// Output is returned in the result, never echoed: the tool has no
		// terminal to echo to.
		no := false
		opts := cli.RunOptions{ShowOutput: &no, ShowCommands: &no}
		if sh := req.GetString("shell", ""); sh != "" {
			opts.Shell = &sh
		}
		if v, ok := req.GetArguments()["check"].(bool); ok {
			opts.Check = &v
		}
		cwd := req.GetString("cwd", "")

		res, runErr := cli.Execute(ctx, cfg, logger, commands, opts, nil, nil, cwd)
		if runErr != nil {
			var cmdErr *shell.CommandError
			if !errors.As(runErr, &cmdErr) {
				return mcp.NewToolResultError(runErr.Error()), nil
			}
			// Check-mode failures still carry a full result; the caller
			// reads the statuses from the JSON.
			res = cmdErr.Result
		}

		data, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
