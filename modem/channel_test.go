package modem_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/mock/gomock"

	"github.com/transitlab/bustrack/at"
	"github.com/transitlab/bustrack/modem"
)

// countingClock counts tick sleeps instead of performing them.
type countingClock struct {
	clock.Clock
	mu     sync.Mutex
	sleeps int
}

func newCountingClock() *countingClock {
	return &countingClock{Clock: clock.New()}
}

func (c *countingClock) Sleep(time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps++
}

func (c *countingClock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}

func TestExecuteCleansResponse(t *testing.T) {
	script := modem.NewScriptTransport().
		Reply("AT+CSQ", "AT+CSQ\r", "", "+CSQ: 15,99", "", "OK")
	channel := modem.NewChannel(script, clock.New(), time.Millisecond)

	resp, err := channel.Execute(at.SignalQuality())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp != "+CSQ: 15,99" {
		t.Errorf("response = %q, want %q", resp, "+CSQ: 15,99")
	}
}

func TestExecuteTimeoutBudget(t *testing.T) {
	script := modem.NewScriptTransport().Silence("AT")
	clk := newCountingClock()
	channel := modem.NewChannel(script, clk, time.Millisecond)

	_, err := channel.Execute(at.Command{Text: "AT", Timeout: 3, End: at.OK})
	if !errors.Is(err, modem.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	// The budget is consumed one sleep per empty poll; it must fail
	// after exactly Timeout sleeps, not one more.
	if clk.Sleeps() != 3 {
		t.Errorf("sleeps = %d, want 3", clk.Sleeps())
	}
}

func TestExecuteDeviceError(t *testing.T) {
	script := modem.NewScriptTransport().
		Reply("AT+HTTPINIT", "", "ERROR")
	channel := modem.NewChannel(script, clock.New(), time.Millisecond)

	_, err := channel.Execute(at.InitHTTP())
	if !errors.Is(err, modem.ErrDeviceFailure) {
		t.Errorf("error = %v, want ErrDeviceFailure", err)
	}
}

func TestExecuteCMEError(t *testing.T) {
	script := modem.NewScriptTransport().
		Reply("AT+HTTPINIT", "", "+CME ERROR: operation not allowed")
	channel := modem.NewChannel(script, clock.New(), time.Millisecond)

	_, err := channel.Execute(at.InitHTTP())
	var cme *modem.CMEError
	if !errors.As(err, &cme) {
		t.Fatalf("error = %v, want *CMEError", err)
	}
	if cme.Command != "AT+HTTPINIT" {
		t.Errorf("Command = %q, want AT+HTTPINIT", cme.Command)
	}
	if cme.Line != "+CME ERROR: operation not allowed" {
		t.Errorf("Line = %q", cme.Line)
	}
}

func TestExecutePrefixTerminatorKeepsLine(t *testing.T) {
	// AT+HTTPACTION is acknowledged with OK; the line that matters is
	// the +HTTPACTION report that follows a blank line. It must end the
	// response and stay in the output.
	script := modem.NewScriptTransport().
		Reply("AT+HTTPACTION=0", "AT+HTTPACTION=0\r", "", "OK", "", "+HTTPACTION: 0,200,25")
	channel := modem.NewChannel(script, clock.New(), time.Millisecond)

	resp, err := channel.Execute(at.HTTPActionGET())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp != "OK+HTTPACTION: 0,200,25" {
		t.Errorf("response = %q", resp)
	}
}

func TestExecutePrefixTerminatorImmediate(t *testing.T) {
	// A report arriving first thing still terminates: the channel
	// starts out as if a blank line preceded.
	script := modem.NewScriptTransport().
		Reply("AT+HTTPACTION=1", "+HTTPACTION: 1,201,0")
	channel := modem.NewChannel(script, clock.New(), time.Millisecond)

	resp, err := channel.Execute(at.HTTPActionPOST())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp != "+HTTPACTION: 1,201,0" {
		t.Errorf("response = %q", resp)
	}
}

func TestExecuteRawDropsReadHeaders(t *testing.T) {
	payload := `{"status":"ok","received":1}`
	script := modem.NewScriptTransport().
		Reply("AT+HTTPREAD", "AT+HTTPREAD\r", "+HTTPREAD: 28", payload, "OK")
	channel := modem.NewChannel(script, clock.New(), time.Millisecond)

	resp, err := channel.ExecuteRaw(at.HTTPRead())
	if err != nil {
		t.Fatalf("ExecuteRaw: %v", err)
	}
	// Length headers are framing; the payload comes back byte-exact.
	if resp != payload {
		t.Errorf("response = %q, want %q", resp, payload)
	}
}

func TestExecuteRawPreservesFraming(t *testing.T) {
	script := modem.NewScriptTransport().
		Reply("AT+CGMR", "", "Revision:1418B05SIM800L24", "", "OK")
	channel := modem.NewChannel(script, clock.New(), time.Millisecond)

	resp, err := channel.ExecuteRaw(at.FirmwareRevision())
	if err != nil {
		t.Fatalf("ExecuteRaw: %v", err)
	}
	if resp != "\r\nRevision:1418B05SIM800L24\r\n" {
		t.Errorf("response = %q", resp)
	}
}

func TestExecuteExactTerminatorExcluded(t *testing.T) {
	script := modem.NewScriptTransport().
		Reply("ATI", "ATI\r", "SIM800 R14.18", "", "OK")
	channel := modem.NewChannel(script, clock.New(), time.Millisecond)

	resp, err := channel.Execute(at.ProductInfo())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp != "SIM800 R14.18" {
		t.Errorf("response = %q, want %q", resp, "SIM800 R14.18")
	}
}

func TestExecuteWriteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := modem.NewMockTransport(ctrl)
	transport.EXPECT().WriteLine("AT+CSQ").Return(errors.New("port gone"))

	channel := modem.NewChannel(transport, clock.New(), time.Millisecond)
	if _, err := channel.Execute(at.SignalQuality()); err == nil {
		t.Error("expected write error")
	}
}

func TestExecuteReadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := modem.NewMockTransport(ctrl)
	transport.EXPECT().WriteLine("AT+CSQ").Return(nil)
	transport.EXPECT().PollLine().Return("", false, errors.New("port gone"))

	channel := modem.NewChannel(transport, clock.New(), time.Millisecond)
	if _, err := channel.Execute(at.SignalQuality()); err == nil {
		t.Error("expected read error")
	}
}
