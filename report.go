package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/transitlab/bustrack/nmea"
)

// Report builds the outbound location report for a fix. The publish
// endpoint takes the channel in the path; GET publishes carry the
// payload URL-escaped in the path, POST publishes carry it as a JSON
// body. Either way the device id rides along as the uuid query
// parameter.
type Report struct {
	BaseURL  string
	Channel  string
	DeviceID string
}

type reportPayload struct {
	Bus string  `json:"bus"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	UTC float64 `json:"utc"`
}

func (r Report) payload(fix nmea.Fix) string {
	b, _ := json.Marshal(reportPayload{
		Bus: r.DeviceID,
		Lat: fix.Latitude,
		Lng: fix.Longitude,
		UTC: fix.UTCTime,
	})
	return string(b)
}

// PostURL is the publish URL for a POST report.
func (r Report) PostURL() string {
	return fmt.Sprintf("%s/%s/0?uuid=%s",
		strings.TrimSuffix(r.BaseURL, "/"), r.Channel, url.QueryEscape(r.DeviceID))
}

// PostBody is the JSON payload for a POST report.
func (r Report) PostBody(fix nmea.Fix) string {
	return r.payload(fix)
}

// GetURL is the publish URL for a GET report, payload escaped into the
// path.
func (r Report) GetURL(fix nmea.Fix) string {
	return fmt.Sprintf("%s/%s/0/%s?uuid=%s",
		strings.TrimSuffix(r.BaseURL, "/"), r.Channel,
		url.QueryEscape(r.payload(fix)), url.QueryEscape(r.DeviceID))
}
