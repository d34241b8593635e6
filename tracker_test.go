package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/transitlab/bustrack/modem"
)

// rmc builds a checksummed RMC sentence for the given timestamp.
func rmc(utc string) string {
	payload := fmt.Sprintf("GPRMC,%s,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W", utc)
	var crc byte
	for i := 0; i < len(payload); i++ {
		crc ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, crc)
}

// openSession brings a scripted modem to an open HTTP session.
func openSession(t *testing.T, script *modem.ScriptTransport) *modem.Modem {
	t.Helper()
	config, err := modem.NewConfigBuilder().
		WithDialer(script).
		WithTick(time.Millisecond).
		WithInitBackoff(time.Millisecond).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m, err := modem.New(context.Background(), config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := m.ConnectBearer("internet", "", ""); err != nil {
		t.Fatalf("ConnectBearer: %v", err)
	}
	if err := m.InitHTTPSession(); err != nil {
		t.Fatalf("InitHTTPSession: %v", err)
	}
	return m
}

func TestTrackerPublishesFreshFixOnce(t *testing.T) {
	script := modem.NewScriptTransport().
		Reply("AT+SAPBR=2,1", `+SAPBR: 1,1,"10.0.0.1"`, "", "OK").
		Reply("AT+HTTPACTION=0", "+HTTPACTION: 0,200,2").
		Reply("AT+HTTPREAD", "+HTTPREAD: 2", "{}", "OK")
	m := openSession(t, script)

	// The same sentence twice: the second fix is identical and must
	// not produce a second report.
	stream := rmc("123519") + rmc("123519")

	tracker := &Tracker{
		GPS:          strings.NewReader(stream),
		Session:      m,
		Report:       Report{BaseURL: "http://pub.example.com", Channel: "bus_7", DeviceID: "bus-7"},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Method:       "GET",
		PollInterval: 2 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if err := tracker.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run: %v, want deadline exceeded", err)
	}

	if got := script.WriteCount("AT+HTTPACTION=0"); got != 1 {
		t.Errorf("reports sent = %d, want 1", got)
	}
	if got := script.WriteCount("AT+HTTPREAD"); got != 1 {
		t.Errorf("body reads = %d, want 1", got)
	}
}

func TestTrackerGivesUpAfterFailures(t *testing.T) {
	script := modem.NewScriptTransport().
		Reply("AT+SAPBR=2,1", `+SAPBR: 1,1,"10.0.0.1"`, "", "OK").
		Reply("AT+HTTPACTION=0", "+HTTPACTION: 0,503,0").
		Reply("AT+HTTPREAD", "OK")
	m := openSession(t, script)

	tracker := &Tracker{
		GPS:          strings.NewReader(rmc("123519")),
		Session:      m,
		Report:       Report{BaseURL: "http://pub.example.com", Channel: "bus_7", DeviceID: "bus-7"},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Method:       "GET",
		PollInterval: 2 * time.Millisecond,
		MaxFailures:  1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := tracker.Run(ctx)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run: %v, want failure-budget error", err)
	}
	if !strings.Contains(err.Error(), "failed reports") {
		t.Errorf("Run: %v", err)
	}
}
