package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoStatusLine = errors.New("no status code found in server response")
	ErrShortBody    = errors.New("connection closed before the declared response body arrived")

	statusLine = regexp.MustCompile(`^(\d{3}) (\d+)$`)
)

// ReadResponse reads one framed response from varnishd.
//
// It scans lines until it finds a status line of the form
// `<3-digit code> <decimal length>`, then reads exactly `length` bytes
// of body, issuing as many reads against the underlying stream as
// that takes. Lines preceding the status line are skipped; varnishd
// does not send any in practice but does terminate each body with a
// blank line, which this skipping absorbs.
//
// A stream that ends before a status line is found yields
// ErrNoStatusLine. A stream that ends mid-body yields ErrShortBody
// rather than a silently truncated body.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	for {
		line, err := r.ReadString('\n')

		if m := statusLine.FindStringSubmatch(strings.TrimRight(line, "\r\n")); m != nil {
			return readBody(r, m)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoStatusLine
			}

			return nil, err
		}
	}
}

func readBody(r *bufio.Reader, statusParts []string) (*Response, error) {
	// The regexp guarantees both parts are plain decimal digits.
	code, err := strconv.Atoi(statusParts[1])
	if err != nil {
		return nil, fmt.Errorf("Failed to parse status code '%s': %w", statusParts[1], err)
	}

	length, err := strconv.Atoi(statusParts[2])
	if err != nil {
		return nil, fmt.Errorf("Failed to parse body length '%s': %w", statusParts[2], err)
	}

	body := make([]byte, length)

	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: wanted %d bytes", ErrShortBody, length)
		}

		return nil, err
	}

	return &Response{Code: code, Body: body}, nil
}
