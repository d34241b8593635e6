package main

import (
	"net/url"
	"testing"

	"github.com/transitlab/bustrack/nmea"
)

func TestReportURLs(t *testing.T) {
	r := Report{
		BaseURL:  "http://pub.example.com/publish/",
		Channel:  "bus_7",
		DeviceID: "bus-7",
	}
	fix := nmea.Fix{UTCTime: 123519, Latitude: 48.5, Longitude: 11.25, Valid: true}

	if got, want := r.PostURL(), "http://pub.example.com/publish/bus_7/0?uuid=bus-7"; got != want {
		t.Errorf("PostURL = %q, want %q", got, want)
	}

	body := r.PostBody(fix)
	if want := `{"bus":"bus-7","lat":48.5,"lng":11.25,"utc":123519}`; body != want {
		t.Errorf("PostBody = %q, want %q", body, want)
	}

	// GET carries the same payload escaped into the path.
	want := "http://pub.example.com/publish/bus_7/0/" + url.QueryEscape(body) + "?uuid=bus-7"
	if got := r.GetURL(fix); got != want {
		t.Errorf("GetURL = %q, want %q", got, want)
	}
}
