package modem

import (
	"context"
	"errors"
	"time"

	"go.bug.st/serial"

	"github.com/transitlab/bustrack/at"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_gen.go -package=modem

// Transport is a line-buffered, byte-oriented duplex link to the
// modem. Writes are whole CRLF-terminated lines; reads are
// non-blocking polls that may deliver nothing.
//
// A Transport is assumed to be already connected. Typical
// implementations are serial ports, TCP connections to emulators, or
// in-memory fakes used for testing.
type Transport interface {
	// WriteLine sends one line to the device, appending the CRLF
	// terminator.
	WriteLine(line string) error

	// PollLine returns the next complete received line with its
	// terminator stripped. ok is false when no complete line is
	// available yet; an empty line with ok true is a genuine blank
	// line on the wire. PollLine must not block longer than one
	// poll interval.
	PollLine() (line string, ok bool, err error)

	// Close releases the underlying connection.
	Close() error
}

// Dialer opens a Transport to a modem.
//
// Dialer abstracts how the connection is created and is used during
// session construction only. Once a Transport is obtained, the Dialer
// is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and
	// deadlines provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens a modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0".
	PortName string
	// BaudRate defaults to 115200 when zero.
	BaudRate int
	// PollTimeout bounds how long a single PollLine waits for bytes.
	// Defaults to 100ms when zero.
	PollTimeout time.Duration
}

// Dial opens the serial port and wraps it in a line-buffered Transport.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("modem: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("modem: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baud := d.BaudRate
	if baud == 0 {
		baud = 115200
	}
	port, err := serial.Open(d.PortName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}

	pollTimeout := d.PollTimeout
	if pollTimeout == 0 {
		pollTimeout = 100 * time.Millisecond
	}
	if err := port.SetReadTimeout(pollTimeout); err != nil {
		port.Close()
		return nil, err
	}

	return &serialTransport{port: port}, nil
}

// serialTransport adapts a serial port to the line-poll contract.
// Bytes read from the port accumulate in buf until a full CRLF line
// can be taken out.
type serialTransport struct {
	port serial.Port
	buf  []byte
	read [256]byte
}

func (t *serialTransport) WriteLine(line string) error {
	_, err := t.port.Write([]byte(line + at.CRLF))
	return err
}

func (t *serialTransport) PollLine() (string, bool, error) {
	if line, ok := t.takeLine(); ok {
		return line, true, nil
	}

	// One bounded read; the port's read timeout makes this a poll.
	n, err := t.port.Read(t.read[:])
	if err != nil {
		return "", false, err
	}
	t.buf = append(t.buf, t.read[:n]...)

	if line, ok := t.takeLine(); ok {
		return line, true, nil
	}
	return "", false, nil
}

func (t *serialTransport) takeLine() (string, bool) {
	advance, token, _ := at.SplitLines(t.buf, false)
	if advance == 0 {
		return "", false
	}
	line := string(token)
	t.buf = t.buf[advance:]
	return line, true
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
