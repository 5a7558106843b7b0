package audit

import "time"

// Entry represents a single audit log record.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"ts"`
	PrevHash   string    `json:"prev_hash"`
	Commands   []string  `json:"commands"`              // original command list, never the assembled script
	Shell      string    `json:"shell"`                 // resolved shell executable
	Allow      bool      `json:"allow,omitempty"`       // true if --allow was used
	Status     int       `json:"status"`                // overall exit status
	PipeStatus []int     `json:"pipestatus,omitempty"`  // per-stage statuses of the last command
	Error      string    `json:"error,omitempty"`       // error message if failed
	Duration   float64   `json:"duration_ms"`           // execution time in milliseconds
	Cwd        string    `json:"cwd"`                   // working directory
	Hash       string    `json:"hash"`                  // SHA-256 of this entry (with hash field empty)
}
