package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultRedThreshold is the number of remaining seconds at or below
	// which countdown lines are shown in the warning colour.
	DefaultRedThreshold uint64 = 5

	DefaultTick = time.Second
)

// ErrTransport is wrapped around any failure to write to, or flush, a Sink.
var ErrTransport = errors.New("Failed to write countdown")

// Streamer writes countdowns. The zero value is not usable, use NewStreamer.
type Streamer struct {
	// RedThreshold is the number of remaining seconds at or below which lines
	// are shown in the warning colour.
	RedThreshold uint64

	// Tick is the wait between two lines.
	Tick time.Duration
}

func NewStreamer() *Streamer {
	return &Streamer{
		RedThreshold: DefaultRedThreshold,
		Tick:         DefaultTick,
	}
}

// Stream writes the status line, one line per Tick from total down to zero,
// then the alarm payload. The sink is flushed after every line so clients
// see each second as it happens.
//
// It returns an error wrapping ErrTransport if the sink fails, or the
// context's error if ctx is done before the countdown completes.
func (s *Streamer) Stream(ctx context.Context, sink Sink, total uint64) error {
	if err := WriteStatus(sink); err != nil {
		return fmt.Errorf("%w: status: %v", ErrTransport, err)
	}

	layout := LayoutFor(total)

	timer := time.NewTimer(s.Tick)
	defer timer.Stop()

	for sec := total; ; sec-- {
		text := layout.Format(sec)

		if err := WriteLine(sink, text, sec == total, sec <= s.RedThreshold); err != nil {
			return fmt.Errorf("%w: line %s: %v", ErrTransport, text, err)
		}

		if err := sink.Flush(); err != nil {
			return fmt.Errorf("%w: line %s: %v", ErrTransport, text, err)
		}

		if err := s.wait(ctx, timer); err != nil {
			return err
		}

		if sec == 0 {
			break
		}
	}

	if err := WriteAlarm(sink); err != nil {
		return fmt.Errorf("%w: alarm: %v", ErrTransport, err)
	}

	if err := sink.Flush(); err != nil {
		return fmt.Errorf("%w: alarm: %v", ErrTransport, err)
	}

	return nil
}

// wait blocks for a single Tick. The timer must have been started with
// Tick and is left running for the next call.
func (s *Streamer) wait(ctx context.Context, timer *time.Timer) error {
	select {
	case <-ctx.Done():
		return ctx.Err()

	case <-timer.C:
		timer.Reset(s.Tick)
		return nil
	}
}
