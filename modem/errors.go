package modem

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrTimeout is returned when a command's empty-read tick budget is
	// exhausted before the declared terminator arrives.
	ErrTimeout = errors.New("command timed out")

	// ErrDeviceFailure is returned when the device answers a command
	// with the generic ERROR token.
	ErrDeviceFailure = errors.New("device reported ERROR")

	// ErrNotInitialized is returned when an operation requires a state
	// the session has not reached (e.g. opening a bearer before
	// Initialize succeeded, or an HTTP request without an HTTP session).
	ErrNotInitialized = errors.New("modem not in required state")

	// ErrNoIPAddress is returned when the bearer never produced a
	// usable IP address within the poll budget.
	ErrNoIPAddress = errors.New("no IP address assigned")

	// ErrResidualIP is returned when the bearer still holds an IP
	// address after a disconnect. The device and the session disagree
	// about the bearer state.
	ErrResidualIP = errors.New("IP address still assigned after disconnect")

	// ErrSSLUnsupported is returned when SSL is requested on a device
	// whose capability probe reported no SSL support.
	ErrSSLUnsupported = errors.New("SSL not supported by this device")
)

// CMEError is a vendor-specific device error (+CME ERROR line). It
// carries the command that provoked it, since the report itself often
// doesn't say.
type CMEError struct {
	// Line is the full +CME ERROR line as received.
	Line string
	// Command is the text of the command that failed.
	Command string
}

func (e *CMEError) Error() string {
	return fmt.Sprintf("%s (command %q)", e.Line, e.Command)
}

// ParseError reports a device response whose layout did not match the
// fixed format a query expected. It is distinct from transport and
// device errors: the command succeeded, the answer is unintelligible.
type ParseError struct {
	// Command is the text of the command whose response failed to parse.
	Command string
	// Response is the response that did not match the expected layout.
	Response string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse response %q to %q", e.Response, e.Command)
}

// isDeviceError reports whether err is a device-level failure (generic
// ERROR or +CME ERROR) as opposed to a transport timeout. Best-effort
// close operations swallow exactly these.
func isDeviceError(err error) bool {
	var cme *CMEError
	return errors.Is(err, ErrDeviceFailure) || errors.As(err, &cme)
}
