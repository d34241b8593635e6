// Package nmea reconstructs checksummed NMEA sentences from a raw
// byte-at-a-time GPS feed and parses position fixes out of them.
//
// The feed is assumed noisy: partial sentences, corrupted bytes and
// unknown sentence types are expected and degrade to "no update",
// never to an error.
package nmea

import "strconv"

// maxSentenceLen bounds accepted characters per sentence so a garbled
// link cannot grow the buffer without ever completing a sentence.
// Based on the longest valid sentence (GGA).
const maxSentenceLen = 90

// Fix is the most recent position accepted from the receiver.
type Fix struct {
	// UTCTime is the sentence timestamp as the literal hhmmss.sss decimal.
	UTCTime float64
	// Latitude in signed decimal degrees, negative south.
	Latitude float64
	// Longitude in signed decimal degrees, negative west.
	Longitude float64
	// Valid reports whether the receiver claimed a genuine fix.
	Valid bool
}

// sentenceParser applies one sentence layout to the comma-split
// segments. It commits to fix and reports true only on a clean parse;
// a malformed sentence leaves fix untouched.
type sentenceParser func(segments []string, fix *Fix) bool

// Accumulator turns a stream of bytes into validated fixes. Feed it
// one byte at a time with Accept; it buffers the sentence in progress,
// verifies the XOR checksum, and dispatches supported sentence types
// through its parser table.
//
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	parsers map[string]sentenceParser

	segments   []string
	crc        byte
	active     bool
	processCRC bool
	charCount  int

	fix Fix
}

// NewAccumulator returns an Accumulator with the RMC, GLL and GGA
// layouts registered under the GP, GL and GN talker IDs. The table is
// fixed for the accumulator's lifetime.
func NewAccumulator() *Accumulator {
	parsers := make(map[string]sentenceParser)
	for tag, p := range map[string]sentenceParser{
		"RMC": parseRMC,
		"GLL": parseGLL,
		"GGA": parseGGA,
	} {
		for _, talker := range []string{"GP", "GL", "GN"} {
			parsers[talker+tag] = p
		}
	}
	return &Accumulator{parsers: parsers}
}

// Fix returns the most recently accepted fix.
func (a *Accumulator) Fix() Fix {
	return a.fix
}

// restart resets the sentence buffer for a new sentence.
func (a *Accumulator) restart() {
	a.segments = a.segments[:0]
	a.segments = append(a.segments, "")
	a.crc = 0
	a.active = true
	a.processCRC = true
	a.charCount = 0
}

// Accept processes one received byte and reports whether it completed
// a sentence that updated the fix. Every other outcome, including
// corrupt checksums and unknown sentence types, is simply false.
func (a *Accumulator) Accept(b byte) bool {
	// Ignore bytes outside the printable range entirely.
	if b < 0x0A || b > 0x7E {
		return false
	}
	a.charCount++

	if b == '$' {
		a.restart()
		return false
	}
	if !a.active {
		return false
	}

	matched := false
	switch b {
	case '*':
		// End of the field phase: the next two characters are the
		// transmitted checksum and are excluded from the XOR.
		a.processCRC = false
		a.segments = append(a.segments, "")
		return false

	case ',':
		a.segments = append(a.segments, "")

	default:
		last := len(a.segments) - 1
		a.segments[last] += string(b)

		if !a.processCRC && len(a.segments[last]) == 2 {
			// Deformed hex here means the checksum could never have
			// matched; the sentence is silently abandoned.
			if want, err := strconv.ParseUint(a.segments[last], 16, 8); err == nil {
				matched = byte(want) == a.crc
			}
		}
	}

	if a.processCRC {
		a.crc ^= b
	}

	if matched {
		a.active = false
		if parse, ok := a.parsers[a.segments[0]]; ok {
			return parse(a.segments, &a.fix)
		}
		// Checksum-valid but unsupported sentence type.
		return false
	}

	if a.charCount > maxSentenceLen {
		a.active = false
	}
	return false
}

func isHemisphere(s string) bool {
	switch s {
	case "N", "S", "E", "W":
		return true
	}
	return false
}

// parseCoordinate converts an NMEA ddmm.mmmm (degrees=2) or dddmm.mmmm
// (degrees=3) field into signed decimal degrees, negated unless hemi
// equals positive.
func parseCoordinate(value, hemi string, degDigits int, positive string) (float64, error) {
	if len(value) < degDigits {
		return 0, strconv.ErrSyntax
	}
	deg, err := strconv.Atoi(value[:degDigits])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseFloat(value[degDigits:], 64)
	if err != nil {
		return 0, err
	}
	coord := float64(deg) + minutes/60
	if hemi != positive {
		coord = -coord
	}
	return coord, nil
}

// parsePosition reads a latitude/longitude field pair with their
// hemisphere letters into next, clearing the position when the
// sentence reports no fix.
func parsePosition(next *Fix, lat, latHemi, lon, lonHemi string, hasFix bool) bool {
	if !hasFix {
		next.Latitude = 0
		next.Longitude = 0
		next.Valid = false
		return true
	}
	if !isHemisphere(latHemi) || !isHemisphere(lonHemi) {
		return false
	}
	latDeg, err := parseCoordinate(lat, latHemi, 2, "N")
	if err != nil {
		return false
	}
	lonDeg, err := parseCoordinate(lon, lonHemi, 3, "E")
	if err != nil {
		return false
	}
	next.Latitude = latDeg
	next.Longitude = lonDeg
	next.Valid = true
	return true
}

// parseRMC applies the Recommended Minimum position layout:
// $--RMC,time,status,lat,NS,lon,EW,speed,course,date,...
func parseRMC(segments []string, fix *Fix) bool {
	if len(segments) < 7 {
		return false
	}
	utc, err := strconv.ParseFloat(segments[1], 64)
	if err != nil {
		return false
	}
	next := *fix
	next.UTCTime = utc
	if !parsePosition(&next, segments[3], segments[4], segments[5], segments[6], segments[2] == "A") {
		return false
	}
	*fix = next
	return true
}

// parseGLL applies the Geographic Position layout:
// $--GLL,lat,NS,lon,EW,time,status,...
func parseGLL(segments []string, fix *Fix) bool {
	if len(segments) < 7 {
		return false
	}
	utc, err := strconv.ParseFloat(segments[5], 64)
	if err != nil {
		return false
	}
	next := *fix
	next.UTCTime = utc
	if !parsePosition(&next, segments[1], segments[2], segments[3], segments[4], segments[6] == "A") {
		return false
	}
	*fix = next
	return true
}

// parseGGA applies the GPS Fix Data layout:
// $--GGA,time,lat,NS,lon,EW,quality,numSV,...
// A zero fix quality clears the position like an RMC "V" status.
func parseGGA(segments []string, fix *Fix) bool {
	if len(segments) < 7 {
		return false
	}
	utc, err := strconv.ParseFloat(segments[1], 64)
	if err != nil {
		return false
	}
	quality, err := strconv.Atoi(segments[6])
	if err != nil {
		return false
	}
	next := *fix
	next.UTCTime = utc
	if !parsePosition(&next, segments[2], segments[3], segments[4], segments[5], quality > 0) {
		return false
	}
	*fix = next
	return true
}
