package shell

import (
	"fmt"
	"strconv"
	"strings"
)

// aggregate derives the overall status and pipestatus from the captured
// payloads. Only the last payload counts: it belongs to the last command in
// the list, and earlier payloads exist only so the assembled script could
// decide whether to keep going. Merging statuses across commands is
// deliberately not done.
//
// Status is the rightmost non-zero stage, or the final stage when all are
// zero — later pipeline stages can mask or surface earlier failures
// depending on the shell, and the rightmost failure is what the shell
// itself would report.
func aggregate(payloads []string) (status int, pipestatus []int, err error) {
	if len(payloads) == 0 {
		return 0, nil, &RunnerError{Message: "failed to capture an exit status"}
	}

	// Payload format: " : <space-separated integers> : ".
	parts := strings.Split(payloads[len(payloads)-1], " : ")
	if len(parts) < 2 {
		return 0, nil, &RunnerError{Message: fmt.Sprintf("malformed status payload: %q", payloads[len(payloads)-1])}
	}

	fields := strings.Fields(parts[1])
	if len(fields) == 0 {
		return 0, nil, &RunnerError{Message: "empty status payload"}
	}

	pipestatus = make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0, nil, &RunnerError{Message: fmt.Sprintf("non-numeric status %q in payload", f)}
		}
		pipestatus = append(pipestatus, n)
	}

	status = pipestatus[len(pipestatus)-1]
	for i := len(pipestatus) - 1; i >= 0; i-- {
		if pipestatus[i] != 0 {
			status = pipestatus[i]
			break
		}
	}
	return status, pipestatus, nil
}
