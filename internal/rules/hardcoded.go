package rules

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Hardcoded returns the built-in safety rules that are always enforced
// regardless of configuration or --allow. These block permanently
// catastrophic operations even though the shell itself would happily run
// them.
func Hardcoded() []CheckFunc {
	return []CheckFunc{
		checkRmCatastrophic,
	}
}

// checkRmCatastrophic blocks recursive removal of root, home, or current
// directory anywhere in the command line, including inside pipelines and
// compound commands.
func checkRmCatastrophic(command string) error {
	for _, seg := range segments(command) {
		if seg[0] != "rm" {
			continue
		}
		args := seg[1:]
		if !hasAnyFlag(args, "-r", "-R") {
			continue
		}
		for _, arg := range args {
			if arg == "" || arg[0] == '-' {
				continue
			}
			cleaned := filepath.Clean(arg)
			if cleaned == "/" || cleaned == "." || cleaned == ".." {
				return fmt.Errorf("refusing to recursively remove %q. This operation is permanently blocked", arg)
			}
			if arg == "~" || strings.HasPrefix(arg, "~/") {
				return fmt.Errorf("refusing to recursively remove %q. This operation is permanently blocked", arg)
			}
		}
	}
	return nil
}
