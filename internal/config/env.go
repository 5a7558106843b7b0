package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by the option cascade. Call-site values
// take precedence over these, and these take precedence over the config
// file.
const (
	EnvShell        = "SHRUN_SHELL"
	EnvCheck        = "SHRUN_CHECK"
	EnvShowOutput   = "SHRUN_SHOW_OUTPUT"
	EnvShowCommands = "SHRUN_SHOW_COMMANDS"
)

// EnvError reports a malformed environment variable value.
type EnvError struct {
	Var   string
	Value string
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("invalid value for %s: %q (expected \"true\" or \"false\", case-insensitive)", e.Var, e.Value)
}

// LookupFunc resolves an environment variable by name. os.LookupEnv
// satisfies it; the daemon substitutes a lookup over the client's
// forwarded environment.
type LookupFunc func(name string) (string, bool)

// EnvString returns the value of a string environment variable, or nil
// when it is unset.
func EnvString(name string) *string {
	return EnvStringFrom(os.LookupEnv, name)
}

// EnvStringFrom is EnvString against an arbitrary lookup.
func EnvStringFrom(lookup LookupFunc, name string) *string {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	return &v
}

// EnvBool returns the value of a boolean environment variable, nil when it
// is unset, or an *EnvError when it is set to anything other than
// "true"/"false" (case-insensitive).
func EnvBool(name string) (*bool, error) {
	return EnvBoolFrom(os.LookupEnv, name)
}

// EnvBoolFrom is EnvBool against an arbitrary lookup.
func EnvBoolFrom(lookup LookupFunc, name string) (*bool, error) {
	v, ok := lookup(name)
	if !ok {
		return nil, nil
	}
	switch strings.ToLower(v) {
	case "true":
		b := true
		return &b, nil
	case "false":
		b := false
		return &b, nil
	}
	return nil, &EnvError{Var: name, Value: v}
}

// Resolve implements the option cascade: an explicitly passed value wins,
// then the environment variable, then the configured value, then the hard
// default.
func Resolve[T any](arg, env, cfg *T, def T) T {
	if arg != nil {
		return *arg
	}
	if env != nil {
		return *env
	}
	if cfg != nil {
		return *cfg
	}
	return def
}
