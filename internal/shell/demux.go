package shell

import (
	"io"
	"strings"
)

// demux splits the child shell's merged output stream into visible output
// and status-report payloads. It is a two-state machine driven one rune at
// a time: outside an OPEN..CLOSE span every rune is visible output; inside,
// runes accumulate into a pending payload. The markers themselves are never
// retained in either buffer.
//
// It consumes runes, not bytes: the markers are multi-byte in UTF-8, and
// splitting one across two reads would corrupt the protocol.
type demux struct {
	echo io.Writer // live echo destination; nil disables echo

	out       strings.Builder
	pending   strings.Builder
	payloads  []string
	capturing bool // inside an OPEN..CLOSE span
}

func newDemux(echo io.Writer) *demux {
	return &demux{echo: echo}
}

// feed advances the state machine by one rune.
func (d *demux) feed(r rune) {
	switch {
	case r == markerOpen:
		d.capturing = true
	case r == markerClose:
		d.payloads = append(d.payloads, d.pending.String())
		d.pending.Reset()
		d.capturing = false
	case d.capturing:
		d.pending.WriteRune(r)
	default:
		d.out.WriteRune(r)
		if d.echo != nil {
			// Echo immediately so prompts from interactive commands
			// show up before their newline arrives.
			io.WriteString(d.echo, string(r))
		}
	}
}

// run feeds runes from r until the stream is exhausted.
func (d *demux) run(r io.RuneReader) error {
	for {
		c, _, err := r.ReadRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		d.feed(c)
	}
}

func (d *demux) output() string { return d.out.String() }
