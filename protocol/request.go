package protocol

import (
	"fmt"
	"math/bits"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
)

// ParseMode controls how forgiving ParseRequest is about the seconds
// component of a duration.
type ParseMode int

const (
	// Strict rejects the request if any component is not a non-negative integer.
	Strict ParseMode = iota

	// Lenient reads an unparseable seconds component as 0. Minutes and hours
	// are still parsed strictly.
	Lenient
)

func (m ParseMode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	default:
		return fmt.Sprintf("ParseMode(%d)", int(m))
	}
}

// TimeComponents is the duration requested by a client, as it was written
// in the request target.
type TimeComponents struct {
	Hours   uint64
	Minutes uint64
	Seconds uint64
}

// Total returns the duration in seconds. No upper bound is enforced, it only
// fails if the result does not fit in a uint64.
func (t TimeComponents) Total() (uint64, error) {
	hi, hours := bits.Mul64(t.Hours, secondsPerHour)
	if hi != 0 {
		return 0, fmt.Errorf("%d hours: %w", t.Hours, ErrDurationOverflow)
	}

	hi, minutes := bits.Mul64(t.Minutes, secondsPerMinute)
	if hi != 0 {
		return 0, fmt.Errorf("%d minutes: %w", t.Minutes, ErrDurationOverflow)
	}

	total, carry := bits.Add64(hours, minutes, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%v: %w", t, ErrDurationOverflow)
	}

	total, carry = bits.Add64(total, t.Seconds, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%v: %w", t, ErrDurationOverflow)
	}

	return total, nil
}

func (t TimeComponents) String() string {
	return fmt.Sprintf("%d:%d:%d", t.Hours, t.Minutes, t.Seconds)
}
