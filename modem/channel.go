package modem

import (
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/transitlab/bustrack/at"
)

// Channel executes one AT command at a time against a Transport and
// returns the response text or a typed failure. It implements the
// command/response framing of the SIM800 series: per-command empty-read
// budgets, per-command terminator tokens, generic and vendor-specific
// error lines.
//
// A Channel never retries; retry policy belongs to the caller. It is
// not safe for concurrent use: overlapping calls would interleave
// bytes on the shared transport.
type Channel struct {
	transport Transport
	clock     clock.Clock
	tick      time.Duration
}

// NewChannel returns a Channel polling the transport on the given
// tick. The clock is injectable so tests can run on a fast tick.
func NewChannel(transport Transport, clk clock.Clock, tick time.Duration) *Channel {
	return &Channel{transport: transport, clock: clk, tick: tick}
}

// Execute runs the command and returns its cleaned response text:
// command echo and terminator stripped, carriage returns removed,
// doubled blank lines collapsed, one leading/trailing blank trimmed.
func (c *Channel) Execute(cmd at.Command) (string, error) {
	return c.run(cmd, false)
}

// ExecuteRaw runs the command and returns the response with its wire
// framing intact (only echo and one trailing terminator stripped).
// Callers that need an exact payload, such as the HTTP bulk read, use
// this instead of Execute.
func (c *Channel) ExecuteRaw(cmd at.Command) (string, error) {
	return c.run(cmd, true)
}

func (c *Channel) run(cmd at.Command, raw bool) (string, error) {
	if err := c.transport.WriteLine(cmd.Text); err != nil {
		return "", fmt.Errorf("write %q: %w", cmd.Text, err)
	}

	var out strings.Builder
	preEnd := true
	emptyReads := 0

	for {
		line, ok, err := c.transport.PollLine()
		if err != nil {
			return "", fmt.Errorf("read response to %q: %w", cmd.Text, err)
		}

		if !ok {
			emptyReads++
			if emptyReads > cmd.Timeout {
				return "", fmt.Errorf("%q after %d ticks: %w", cmd.Text, cmd.Timeout, ErrTimeout)
			}
			c.clock.Sleep(c.tick)
			continue
		}

		if line == at.Error {
			return "", fmt.Errorf("%q: %w", cmd.Text, ErrDeviceFailure)
		}
		if strings.HasPrefix(line, at.CMEErrorPrefix) {
			return "", &CMEError{Line: line, Command: cmd.Text}
		}

		// The terminator ends the loop: exactly, or by prefix when the
		// previous line was blank. Only the prefix match keeps the
		// terminator line in the output (it carries data, e.g.
		// "+HTTPACTION: 0,200,25").
		if line == cmd.End {
			break
		}
		if preEnd && strings.HasPrefix(line, cmd.End) {
			out.WriteString(line)
			out.WriteString(at.CRLF)
			break
		}

		preEnd = line == ""

		// The bulk read's length headers are framing, not payload.
		if cmd.Text == at.HTTPRead().Text && strings.HasPrefix(line, at.HTTPReadPrefix) {
			continue
		}

		out.WriteString(line)
		out.WriteString(at.CRLF)
	}

	return finish(out.String(), cmd, raw), nil
}

// finish strips the wire artifacts from a completed response: the
// echoed command, one trailing terminator, and in clean mode the
// carriage returns and blank-line padding the device interleaves.
func finish(out string, cmd at.Command, raw bool) string {
	out = strings.ReplaceAll(out, cmd.Text+"\r"+at.CRLF, "")
	out = strings.TrimSuffix(out, at.CRLF)
	if raw {
		return out
	}

	out = strings.ReplaceAll(out, "\r", "")
	out = strings.ReplaceAll(out, "\n\n", "")
	out = strings.TrimPrefix(out, "\n")
	out = strings.TrimSuffix(out, "\n")
	return out
}
