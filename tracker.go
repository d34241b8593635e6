package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/transitlab/bustrack/mailbox"
	"github.com/transitlab/bustrack/modem"
	"github.com/transitlab/bustrack/nmea"
)

// Tracker couples the two engines: a GPS loop feeding receiver bytes
// to the sentence accumulator, and a network loop publishing the
// newest fix through the modem. The loops never share the modem or
// the GPS stream; fixes cross between them through a single-slot
// mailbox, so the network side always sends the latest known position
// and never a backlog.
type Tracker struct {
	GPS     io.Reader
	Session *modem.Modem
	Report  Report
	Logger  *slog.Logger

	// Method is the HTTP method for reports, "POST" or "GET".
	Method string
	// PollInterval is how long the network loop idles when no fresh
	// fix is available.
	PollInterval time.Duration
	// MaxFailures bounds consecutive failed reports before Run gives
	// up and returns, so a supervisor can restart the hardware.
	MaxFailures int
}

// Run drives both loops until the context is cancelled or the network
// loop exhausts its failure budget.
func (t *Tracker) Run(ctx context.Context) error {
	if t.PollInterval == 0 {
		t.PollInterval = time.Second
	}
	if t.MaxFailures == 0 {
		t.MaxFailures = 10
	}

	box := new(mailbox.Mailbox[nmea.Fix])

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return t.readGPS(ctx, box) })
	g.Go(func() error { return t.sendReports(ctx, box) })
	return g.Wait()
}

// readGPS feeds the receiver byte stream to the accumulator and
// publishes fresh valid fixes into the mailbox.
func (t *Tracker) readGPS(ctx context.Context, box *mailbox.Mailbox[nmea.Fix]) error {
	acc := nmea.NewAccumulator()
	reader := bufio.NewReader(t.GPS)
	var last nmea.Fix

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read GPS stream: %w", err)
		}
		if !acc.Accept(b) {
			continue
		}

		fix := acc.Fix()
		switch {
		case fix.UTCTime == 0:
			t.Logger.Debug("GPS: no time fix")
		case !fix.Valid:
			t.Logger.Debug("GPS: no location fix")
		case fix != last:
			box.Put(fix)
			last = fix
		}
	}
}

// sendReports drains the newest fix from the mailbox and publishes it
// through the modem's HTTP session.
func (t *Tracker) sendReports(ctx context.Context, box *mailbox.Mailbox[nmea.Fix]) error {
	failures := 0

	for {
		fix, ok := box.Take()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.PollInterval):
			}
			continue
		}

		start := time.Now()
		resp, err := t.publish(fix)
		switch {
		case err != nil:
			failures++
			t.Logger.Error("report failed", "error", err, "failures", failures)
		case resp.StatusCode != 200:
			failures++
			t.Logger.Error("report rejected",
				"status", resp.StatusCode, "reason", resp.Status, "failures", failures)
		default:
			failures = 0
			t.Logger.Info("location sent",
				"lat", fix.Latitude, "lng", fix.Longitude, "utc", fix.UTCTime,
				"took", time.Since(start))
		}

		if failures >= t.MaxFailures {
			return fmt.Errorf("giving up after %d consecutive failed reports", failures)
		}
	}
}

func (t *Tracker) publish(fix nmea.Fix) (*modem.Response, error) {
	if t.Method == "GET" {
		return t.Session.HTTPRequest(t.Report.GetURL(fix), "GET", "", "")
	}
	return t.Session.HTTPRequest(t.Report.PostURL(), "POST", t.Report.PostBody(fix), "application/json")
}
