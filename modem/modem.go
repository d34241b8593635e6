package modem

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/looplab/fsm"

	"github.com/transitlab/bustrack/at"
)

// sslCapabilityReport is what a SIM800 with SSL support answers to the
// capability query.
const sslCapabilityReport = "+CIPSSL: (0-1)"

// httpBearerProfile is the fixed bearer profile id the HTTP service is
// bound to.
const httpBearerProfile = 1

// Modem is a stateful session over a Channel implementing the bearer
// (GPRS) lifecycle, the HTTP session lifecycle, and derived status
// queries.
//
// Calls are synchronous and blocking: a call occupies the caller for
// up to its command timeout budget. A Modem is not reentrant;
// concurrent calls would interleave bytes on the shared transport.
type Modem struct {
	channel *Channel
	fsm     *fsm.FSM
	clock   clock.Clock
	logger  *slog.Logger
	config  Config

	closed bool

	// info is the product identification cached at Initialize.
	info string
	// sslSupported caches the capability probe from Initialize.
	sslSupported bool
	// ipAddr is the bearer IP last observed by ConnectBearer.
	ipAddr string
}

// New dials the transport and returns an unconnected session in the
// uninitialized state. Call Initialize before any other operation.
func New(ctx context.Context, config Config) (*Modem, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial modem: %w", err)
	}

	return &Modem{
		channel: NewChannel(transport, config.clock, config.tick),
		fsm:     newSessionFSM(),
		clock:   config.clock,
		logger:  config.logger,
		config:  config,
	}, nil
}

// State returns the session's current lifecycle state.
func (m *Modem) State() string {
	return m.fsm.Current()
}

// Close releases the transport. The session cannot be reused after
// Close.
func (m *Modem) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.channel.transport.Close()
}

// Initialize probes the device with the identity query, retrying a
// bounded number of times with a fixed backoff: the transport may not
// be responsive yet right after power-up. On success it caches the
// product identification, best-effort probes SSL capability, and moves
// the session to the initialized state.
func (m *Modem) Initialize() error {
	var info string
	for attempt := 1; ; attempt++ {
		var err error
		info, err = m.channel.Execute(at.ProductInfo())
		if err == nil {
			break
		}
		if attempt >= m.config.initRetries {
			return fmt.Errorf("probe modem identity: %w", err)
		}
		m.logger.Warn("modem probe failed, retrying",
			"attempt", attempt, "max", m.config.initRetries, "error", err)
		m.clock.Sleep(m.config.initBackoff)
	}
	m.info = info

	if err := m.transition(eventInitialize); err != nil {
		return err
	}

	// Capability probe is best-effort: an unsupported query just means
	// no SSL.
	if resp, err := m.channel.Execute(at.CheckSSL()); err == nil {
		m.sslSupported = resp == sslCapabilityReport
	}

	if m.config.verboseErrors {
		if _, err := m.channel.Execute(at.EnableErrorCodes()); err != nil {
			return fmt.Errorf("enable verbose errors: %w", err)
		}
	}

	m.logger.Info("modem initialized", "info", m.info, "ssl", m.sslSupported)
	return nil
}

// ModemInfo returns the product identification cached at Initialize.
func (m *Modem) ModemInfo() string {
	return m.info
}

// SSLSupported reports the capability cached at Initialize.
func (m *Modem) SSLSupported() bool {
	return m.sslSupported
}

// queryIP asks the bearer status for the assigned IP address. It
// returns "" when the device reports the null address; a status line
// that doesn't carry a 4-octet address is a ParseError.
func (m *Modem) queryIP() (string, error) {
	cmd := at.BearerStatus()
	resp, err := m.channel.Execute(cmd)
	if err != nil {
		return "", err
	}

	// +SAPBR: 1,1,"10.122.49.13"
	tail := resp
	if i := strings.LastIndex(resp, "+"); i >= 0 {
		tail = resp[i+1:]
	}
	pieces := strings.Split(tail, ",")
	if len(pieces) != 3 {
		return "", &ParseError{Command: cmd.Text, Response: resp}
	}
	ip := strings.ReplaceAll(pieces[2], `"`, "")
	if len(strings.Split(ip, ".")) != 4 {
		return "", &ParseError{Command: cmd.Text, Response: resp}
	}
	if ip == "0.0.0.0" {
		return "", nil
	}
	return ip, nil
}

// ConnectBearer opens the GPRS bearer and returns the assigned IP
// address. It requires an initialized session. If an IP is already
// assigned the call is idempotent: the address is returned unchanged
// and no bearer command is issued. Otherwise any stale bearer is
// best-effort closed, the bearer parameters are set, the bearer is
// opened and the IP is polled for within a bounded budget; exhausting
// the budget is a connectivity failure.
func (m *Modem) ConnectBearer(apn, user, pass string) (string, error) {
	if m.fsm.Is(stateUninitialized) {
		return "", fmt.Errorf("connect bearer in state %q: %w", m.fsm.Current(), ErrNotInitialized)
	}

	ip, err := m.queryIP()
	if err != nil {
		return "", err
	}
	if ip != "" {
		m.ipAddr = ip
		// Already at or above bearer_open (including with an HTTP
		// session up) the state stands; only initialized moves up.
		if m.fsm.Is(stateInitialized) {
			if err := m.transition(eventConnectBearer); err != nil {
				return "", err
			}
		}
		return ip, nil
	}

	// Close any bearer left open by a previous connect gone wrong.
	// "Already closed" reports as a device error; that's fine.
	if _, err := m.channel.Execute(at.CloseBearer()); err != nil && !isDeviceError(err) {
		return "", err
	}

	for _, cmd := range []at.Command{
		at.SetBearerGPRS(),
		at.SetBearerAPN(apn),
		at.SetBearerUsername(user),
		at.SetBearerPassword(pass),
		at.OpenBearer(),
	} {
		if _, err := m.channel.Execute(cmd); err != nil {
			return "", err
		}
	}

	for attempt := 1; ; attempt++ {
		ip, err = m.queryIP()
		if err != nil {
			return "", err
		}
		if ip != "" {
			break
		}
		if attempt >= m.config.ipRetries {
			return "", fmt.Errorf("bearer open, %d polls: %w", attempt, ErrNoIPAddress)
		}
		m.logger.Debug("waiting for bearer IP", "poll", attempt)
		m.clock.Sleep(m.config.tick)
	}

	m.ipAddr = ip
	if m.fsm.Is(stateInitialized) {
		if err := m.transition(eventConnectBearer); err != nil {
			return "", err
		}
	}
	m.logger.Info("bearer connected", "ip", ip, "apn", apn)
	return ip, nil
}

// IPAddress returns the bearer IP last observed by ConnectBearer, or
// "" when no bearer is open.
func (m *Modem) IPAddress() string {
	return m.ipAddr
}

// DisconnectBearer best-effort closes any open HTTP session, then the
// bearer, and asserts that no IP address remains assigned; a residual
// address means the device and the session disagree and is reported as
// a consistency failure.
func (m *Modem) DisconnectBearer() error {
	// An HTTP session cannot outlive its bearer; take it down first.
	if m.fsm.Is(stateHTTPOpen) {
		if _, err := m.channel.Execute(at.CloseHTTP()); err != nil && !isDeviceError(err) {
			return err
		}
		if err := m.transition(eventCloseHTTP); err != nil {
			return err
		}
	}

	if _, err := m.channel.Execute(at.CloseBearer()); err != nil && !isDeviceError(err) {
		return err
	}

	ip, err := m.queryIP()
	if err != nil {
		return err
	}
	if ip != "" {
		return fmt.Errorf("bearer reports %s: %w", ip, ErrResidualIP)
	}

	m.ipAddr = ""
	if m.fsm.Is(stateBearerOpen) {
		if err := m.transition(eventDisconnectBearer); err != nil {
			return err
		}
	}
	m.logger.Info("bearer disconnected")
	return nil
}

// InitHTTPSession starts the device's HTTP service bound to the fixed
// bearer profile. It requires an open bearer. Any previous HTTP
// session is best-effort closed first, so the call is idempotent.
func (m *Modem) InitHTTPSession() error {
	if !m.fsm.Is(stateBearerOpen) && !m.fsm.Is(stateHTTPOpen) {
		return fmt.Errorf("init HTTP session in state %q: %w", m.fsm.Current(), ErrNotInitialized)
	}

	if _, err := m.channel.Execute(at.CloseHTTP()); err != nil && !isDeviceError(err) {
		return err
	}
	if _, err := m.channel.Execute(at.InitHTTP()); err != nil {
		return err
	}
	if _, err := m.channel.Execute(at.SetHTTPCID(httpBearerProfile)); err != nil {
		return err
	}

	// Re-opening from http_open needs no transition.
	if m.fsm.Is(stateBearerOpen) {
		if err := m.transition(eventOpenHTTP); err != nil {
			return err
		}
	}
	m.logger.Debug("HTTP session open")
	return nil
}

// CloseHTTPSession terminates the device's HTTP service.
func (m *Modem) CloseHTTPSession() error {
	if _, err := m.channel.Execute(at.CloseHTTP()); err != nil {
		return err
	}
	if m.fsm.Is(stateHTTPOpen) {
		if err := m.transition(eventCloseHTTP); err != nil {
			return err
		}
	}
	m.logger.Debug("HTTP session closed")
	return nil
}

// Response is the outcome of an HTTP request through the device.
type Response struct {
	// StatusCode is the HTTPACTION status code. Codes 6xx are
	// SIM800-specific transport failures.
	StatusCode int
	// Status is the code's description, "Unknown" for unlisted codes.
	Status string
	// Content is the exact response body from the bulk read.
	Content string
}

// HTTPRequest performs a GET or POST through the open HTTP session.
//
// For POST the body length is declared through a command terminated by
// the download-ready token rather than OK, because the device next
// expects the literal body bytes as if they were a command payload.
// The response body is read in raw mode to preserve the payload
// exactly.
func (m *Modem) HTTPRequest(url, method, body, contentType string) (*Response, error) {
	if !m.fsm.Is(stateHTTPOpen) {
		return nil, fmt.Errorf("HTTP request in state %q: %w", m.fsm.Current(), ErrNotInitialized)
	}

	if _, err := m.channel.Execute(at.SetHTTPURL(url)); err != nil {
		return nil, err
	}

	var action at.Command
	switch method {
	case "GET":
		action = at.HTTPActionGET()

	case "POST":
		if contentType == "" {
			contentType = "application/json"
		}
		if _, err := m.channel.Execute(at.SetHTTPContent(contentType)); err != nil {
			return nil, err
		}
		if _, err := m.channel.Execute(at.HTTPData(len(body))); err != nil {
			return nil, err
		}
		if _, err := m.channel.Execute(at.DumpData(body)); err != nil {
			return nil, err
		}
		action = at.HTTPActionPOST()

	default:
		return nil, fmt.Errorf("unsupported HTTP method %q", method)
	}

	status, err := m.channel.Execute(action)
	if err != nil {
		return nil, err
	}

	// +HTTPACTION: <method>,<code>,<length>; the code is the second
	// comma-separated field.
	fields := strings.Split(status, ",")
	if len(fields) < 2 {
		return nil, &ParseError{Command: action.Text, Response: status}
	}
	code, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return nil, &ParseError{Command: action.Text, Response: status}
	}

	content, err := m.channel.ExecuteRaw(at.HTTPRead())
	if err != nil {
		return nil, err
	}

	m.logger.Debug("HTTP request done", "method", method, "url", url, "status", code)
	return &Response{StatusCode: code, Status: at.StatusText(code), Content: content}, nil
}

// EnableSSL turns on SSL for HTTP sessions. The device must have
// reported the capability at Initialize.
func (m *Modem) EnableSSL() error {
	return m.setSSL(true)
}

// DisableSSL turns off SSL for HTTP sessions.
func (m *Modem) DisableSSL() error {
	return m.setSSL(false)
}

func (m *Modem) setSSL(enabled bool) error {
	if !m.sslSupported {
		return ErrSSLUnsupported
	}
	_, err := m.channel.Execute(at.SetSSL(enabled))
	return err
}
