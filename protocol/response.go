package protocol

// Response is a decoded countdown response, as received by a client.
type Response struct {
	Status string

	// Lines holds every countdown line in the order they were received.
	Lines []Line

	// Alarm is true if the stream ended with the alarm payload.
	Alarm bool

	// Usage is set instead of Lines when the server rejected the request.
	Usage string
}

// Line is a single countdown line with its escape sequences removed.
type Line struct {
	Text string

	// Warning is true if the line was wrapped in the warning colour.
	Warning bool

	// Overwrites is true if the line was prefixed with a clear-line sequence.
	Overwrites bool
}

// IsUsage returns true if the server answered with the usage message.
func (r *Response) IsUsage() bool {
	return r.Usage != ""
}

// Texts returns the text of every line.
func (r *Response) Texts() []string {
	texts := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		texts = append(texts, line.Text)
	}

	return texts
}
