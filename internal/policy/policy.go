// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"

	"go.starlark.net/starlark"
)

// Hook wraps a user-supplied Starlark policy script. The script must define
//
//	def check(commands, shell): ...
//
// where commands is a list of command strings and shell is the resolved
// shell path. Returning a non-empty string denies the run with that string
// as the reason; None or an empty string allows it.
type Hook struct {
	path  string
	check starlark.Callable
}

// DeniedError reports a command list rejected by the policy script.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return "blocked by policy: " + e.Reason
}

// Load parses and executes the script at path and captures its check
// function. The script's top level runs once, at load time.
func Load(path string) (*Hook, error) {
	thread := &starlark.Thread{Name: "policy"}
	globals, err := starlark.ExecFile(thread, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("load policy script: %w", err)
	}
	fn, ok := globals["check"]
	if !ok {
		return nil, fmt.Errorf("policy script %s does not define check(commands, shell)", path)
	}
	callable, ok := fn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("policy script %s: check is not callable", path)
	}
	return &Hook{path: path, check: callable}, nil
}

// Check evaluates the hook against the command list. Returns a *DeniedError
// when the script vetoes the run, or a wrapped evaluation error when the
// script itself fails.
func (h *Hook) Check(commands []string, shell string) error {
	elems := make([]starlark.Value, len(commands))
	for i, c := range commands {
		elems[i] = starlark.String(c)
	}
	thread := &starlark.Thread{Name: "policy"}
	args := starlark.Tuple{starlark.NewList(elems), starlark.String(shell)}
	v, err := starlark.Call(thread, h.check, args, nil)
	if err != nil {
		return fmt.Errorf("policy check in %s: %w", h.path, err)
	}
	if reason, ok := starlark.AsString(v); ok && reason != "" {
		return &DeniedError{Reason: reason}
	}
	return nil
}
