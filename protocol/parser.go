package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMalformedRequest is wrapped by every error ParseRequest returns.
	ErrMalformedRequest = errors.New("Request is malformed")

	ErrInvalidEncoding  = fmt.Errorf("%w, it is not valid UTF-8", ErrMalformedRequest)
	ErrMissingTarget    = fmt.Errorf("%w, the request line has no target", ErrMalformedRequest)
	ErrMissingDuration  = fmt.Errorf("%w, the target has no path segment after the root", ErrMalformedRequest)
	ErrInvalidComponent = fmt.Errorf("%w, a duration component is not a non-negative integer", ErrMalformedRequest)
	ErrDurationOverflow = fmt.Errorf("%w, the duration does not fit in 64 bits", ErrMalformedRequest)

	ErrResponseMissingStatus = errors.New("Response is malformed, it does not start with a status line")
)

// maxComponents is the number of colon delimited components that are read
// from the end of a duration. Anything further left is ignored.
const maxComponents = 3

// ParseRequest extracts the duration from the raw bytes of a request.
//
// data does not have to be a complete request, only the first line is
// looked at.
func ParseRequest(data []byte, mode ParseMode) (TimeComponents, error) {
	if !utf8.Valid(data) {
		return TimeComponents{}, ErrInvalidEncoding
	}

	target, err := requestTarget(data)
	if err != nil {
		return TimeComponents{}, err
	}

	segments := strings.Split(target, "/")
	if len(segments) < 2 {
		return TimeComponents{}, fmt.Errorf("Failed to parse '%s': %w", target, ErrMissingDuration)
	}

	return parseDuration(segments[1], mode)
}

// RequestLine returns the first line of data without its line terminator.
func RequestLine(data []byte) []byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}

	return RemoveTrailingCR(data)
}

func requestTarget(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrMissingTarget
	}

	fields := strings.Fields(string(RequestLine(data)))
	if len(fields) < 2 {
		return "", ErrMissingTarget
	}

	return fields[1], nil
}

func parseDuration(raw string, mode ParseMode) (TimeComponents, error) {
	tokens := strings.Split(raw, ":")

	// Walk from the right: seconds, minutes, hours
	var values [maxComponents]uint64
	for i := 0; i < maxComponents && i < len(tokens); i++ {
		token := tokens[len(tokens)-1-i]

		value, err := strconv.ParseUint(token, 10, 64)
		if err != nil {
			if i == 0 && mode == Lenient {
				continue
			}

			return TimeComponents{}, fmt.Errorf("Failed to parse '%s' in '%s': %w",
				token, raw, ErrInvalidComponent)
		}

		values[i] = value
	}

	return TimeComponents{
		Seconds: values[0],
		Minutes: values[1],
		Hours:   values[2],
	}, nil
}

// ReadResponse reads a complete countdown response from the provided Reader.
// It blocks until the server closes the stream.
//
// To avoid denial of service attacks, the provided Reader should be
// an io.LimitReader or similar Reader to bound the size of responses.
func ReadResponse(data io.Reader) (*Response, error) {
	r := bufio.NewReader(data)

	status, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("Failed to read status: %w", err)
	}

	blank, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("Failed to read status: %w", err)
	}

	if !bytes.HasPrefix(status, []byte("HTTP/")) || len(RemoveTrailingCR(blank[:len(blank)-1])) != 0 {
		return nil, ErrResponseMissingStatus
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	resp := &Response{Status: string(RemoveTrailingCR(status[:len(status)-1]))}

	if bytes.HasPrefix(body, UsagePrefix) {
		resp.Usage = string(body)
		return resp, nil
	}

	if bytes.HasSuffix(body, alarmPayload) {
		resp.Alarm = true
		body = body[:len(body)-len(alarmPayload)]
	}

	for _, raw := range bytes.SplitAfter(body, []byte("\n")) {
		if len(raw) == 0 {
			continue
		}

		resp.Lines = append(resp.Lines, decodeLine(raw))
	}

	return resp, nil
}

func decodeLine(raw []byte) Line {
	raw = bytes.TrimSuffix(raw, []byte("\n"))

	var line Line
	if bytes.HasPrefix(raw, ClearPrevLine) {
		line.Overwrites = true
		raw = raw[len(ClearPrevLine):]
	}

	if bytes.HasPrefix(raw, SetRed) && bytes.HasSuffix(raw, ClearColor) {
		line.Warning = true
		raw = raw[len(SetRed) : len(raw)-len(ClearColor)]
	}

	line.Text = string(raw)

	return line
}

func RemoveTrailingCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		// Remove the optional trailing \r
		return data[:len(data)-1]
	}

	return data
}
