package shell

import (
	"fmt"
	"strings"
)

// assemble builds the script string sent to the shell: each command is
// followed by a status-report invocation passing the dialect's pipestatus
// expression, and, in check mode, an `|| exit` clause that aborts the
// remaining commands on the first failure. Killing the child process from
// the parent is not fast enough to stop a command list reliably; exiting
// from inside the shell is.
//
// assemble is a pure function: identical inputs produce a byte-identical
// script.
func assemble(commands []string, d Dialect, check bool, reporter string) (string, error) {
	if len(commands) == 0 {
		return "", ErrNoCommands
	}

	report := fmt.Sprintf(`"%s" %s "%s"`, reporter, ReportArg, d.PipeStatus)
	if check {
		report += fmt.Sprintf(` || exit "%s"`, d.LastStatus)
	}

	stmts := make([]string, 0, len(commands)*2)
	for _, c := range commands {
		stmts = append(stmts, c, report)
	}
	return strings.Join(stmts, "; "), nil
}
