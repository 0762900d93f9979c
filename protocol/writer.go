package protocol

import (
	"io"
)

var (
	// StatusLine is sent once, before anything else, on every response.
	StatusLine = []byte("HTTP/1.1 200 OK\r\n\r\n")

	// ClearPrevLine moves the cursor up a line, erases it and returns to
	// the first column.
	ClearPrevLine = []byte("\x1b[1A\x1b[2K\x1b[1G")
	SetRed        = []byte("\x1b[37;41m")
	ClearColor    = []byte("\x1b[0m")
	Bell          = []byte("\x07\n")

	// Rows keep their trailing space
	AlarmText = []byte("\n" +
		"  AAA   LL        AAA   RRRRRR  MM    MM \n" +
		" AAAAA  LL       AAAAA  RR   RR MMM  MMM \n" +
		"AA   AA LL      AA   AA RRRRRR  MM MM MM \n" +
		"AAAAAAA LL      AAAAAAA RR  RR  MM    MM \n" +
		"AA   AA LLLLLLL AA   AA RR   RR MM    MM ")

	UsagePrefix = []byte("Usage: ")
	Usage       = []byte("Usage: curl ip:8080/<hours>:<minutes>:<seconds>\r\nExample curl ip:8080/1:15:0\r\n")

	Terminal = []byte("\n")

	alarmPayload = concat(ClearPrevLine, SetRed, AlarmText, ClearColor, Bell)
)

// Sink is where a countdown is written to. Writes must be delivered in the
// order they are issued. *bufio.Writer is a Sink.
type Sink interface {
	io.Writer
	Flush() error
}

func WriteStatus(w io.Writer) error {
	_, err := w.Write(StatusLine)
	return err
}

// WriteUsage writes the response sent to clients whose request could not be
// parsed.
func WriteUsage(w io.Writer) error {
	_, err := w.Write(concat(StatusLine, Usage))
	return err
}

// WriteLine writes a single countdown line. Every line but the first
// overwrites the one before it.
func WriteLine(w io.Writer, text string, first, warning bool) error {
	b := make([]byte, 0, len(ClearPrevLine)+len(SetRed)+len(text)+len(ClearColor)+len(Terminal))

	if !first {
		b = append(b, ClearPrevLine...)
	}

	if warning {
		b = append(b, SetRed...)
	}

	b = append(b, text...)

	if warning {
		b = append(b, ClearColor...)
	}

	b = append(b, Terminal...)

	_, err := w.Write(b)
	return err
}

func WriteAlarm(w io.Writer) error {
	_, err := w.Write(alarmPayload)
	return err
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}

	b := make([]byte, 0, n)
	for _, p := range parts {
		b = append(b, p...)
	}

	return b
}
