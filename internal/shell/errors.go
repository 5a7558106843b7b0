package shell

import (
	"errors"
	"fmt"
)

// ErrNoCommands is returned when an empty command list is given.
var ErrNoCommands = errors.New("no commands given")

// Result holds the outcome of running a command list through a shell.
type Result struct {
	// Out is the visible output with trailing whitespace trimmed.
	Out string `json:"out"`
	// Status is the overall exit status: the rightmost non-zero pipeline
	// stage of the last command, or zero if every stage succeeded.
	Status int `json:"status"`
	// PipeStatus holds the exit status of each pipeline stage of the last
	// command. Single-element when the command was not a pipeline or the
	// dialect has no per-stage reporting.
	PipeStatus []int `json:"pipestatus"`
}

// CommandError reports that one or more pipeline stages exited non-zero
// while check mode was enabled. It carries the full result so callers can
// inspect partial output without re-running.
type CommandError struct {
	Result Result
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command exited with non-zero status: %v", e.Result.PipeStatus)
}

// RunnerError reports an internal invariant failure, such as the child
// exiting without ever completing a status report. It signals a bug or an
// unexpected kill, not a user-facing command failure.
type RunnerError struct {
	Message string
}

func (e *RunnerError) Error() string { return e.Message }

// ResolutionError reports that a shell executable could not be resolved,
// or that the resolved executable is not a shell.
type ResolutionError struct {
	Message string
}

func (e *ResolutionError) Error() string { return e.Message }
