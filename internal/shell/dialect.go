package shell

// Dialect holds the shell-syntax tokens for referencing exit statuses.
type Dialect struct {
	// LastStatus expands to the exit status of the last command.
	LastStatus string
	// PipeStatus expands to the space-separated exit statuses of every
	// stage of the last pipeline. Equal to LastStatus for shells without
	// per-stage reporting.
	PipeStatus string
}

// dialectFor maps a shell executable's base name to its status syntax.
// Unknown shells (including plain sh) degrade to POSIX $?, which only ever
// exposes the final stage's status. That is a deliberate choice: it never
// blocks execution, it only reduces status granularity.
func dialectFor(base string) Dialect {
	switch base {
	case "bash":
		return Dialect{LastStatus: "$?", PipeStatus: "${PIPESTATUS[*]}"}
	case "zsh", "fish":
		return Dialect{LastStatus: "$status", PipeStatus: "$pipestatus"}
	default:
		return Dialect{LastStatus: "$?", PipeStatus: "$?"}
	}
}
