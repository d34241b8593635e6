package at

import (
	"bufio"
	"bytes"
)

// SplitLines is a bufio.SplitFunc that frames AT modem output into
// CRLF-terminated lines. The terminator is consumed but not returned,
// so an empty token is a genuine blank line on the wire.
//
// Incomplete trailing data is held back until more bytes arrive; at
// EOF any remainder is returned as a final token.
func SplitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = SplitLines
