package shell

import (
	"fmt"
	"io"
	"strings"
)

// The markers delimiting status payloads in the merged output stream.
// They are Japanese radicals rather than full Kanji (⽌ U+2F4C instead of
// 止 U+6B62, ⾏ U+2F8F instead of 行 U+884C), so they do not occur even in
// ordinary Japanese text. The code points live only inside this binary and
// are never written into the assembled script, so a shell that reprints
// unparsed input (fish does this on pipeline errors) cannot forge one.
const (
	markerOpen  = '⽌'
	markerClose = '⾏'
)

// ReportArg is the hidden first argument that switches the binary into
// status-reporter mode. The assembler injects an invocation of the running
// executable with this argument after every command.
const ReportArg = "__report"

// formatPayload wraps a raw pipestatus expansion in the sentinel markers.
func formatPayload(raw string) string {
	return string(markerOpen) + " : " + raw + " : " + string(markerClose)
}

// ReportExitCode returns the first non-zero integer in a raw pipestatus
// expansion, or zero if all stages succeeded. Non-numeric tokens count as
// zero; the aggregator rejects them properly on the parent side.
func ReportExitCode(raw string) int {
	for _, field := range strings.Fields(raw) {
		n := 0
		fmt.Sscanf(field, "%d", &n)
		if n != 0 {
			return n
		}
	}
	return 0
}

// Report implements the status-reporter helper: it prints the raw
// pipestatus expansion wrapped in sentinel markers, with no trailing
// newline, and returns the exit code the helper process should exit with.
// Printing happens before the exit code is acted on, so the payload is
// always flushed to the merged stream even when an `|| exit` clause follows.
func Report(w io.Writer, raw string) int {
	fmt.Fprint(w, formatPayload(raw))
	return ReportExitCode(raw)
}
