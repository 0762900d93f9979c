package protocol

import "fmt"

// Layout is the width a countdown is displayed with.
type Layout int

const (
	LayoutSeconds Layout = iota // ss
	LayoutMinutes               // mm:ss
	LayoutHours                 // hh:mm:ss
)

// LayoutFor returns the layout used for every line of a countdown of total
// seconds. It is picked once so the display does not shrink as the
// countdown crosses an hour or minute boundary.
func LayoutFor(total uint64) Layout {
	switch {
	case total >= secondsPerHour:
		return LayoutHours
	case total >= secondsPerMinute:
		return LayoutMinutes
	default:
		return LayoutSeconds
	}
}

// Format renders sec with two digits per unit. Hours are allowed to grow
// past two digits.
func (l Layout) Format(sec uint64) string {
	switch l {
	case LayoutHours:
		return fmt.Sprintf("%02d:%02d:%02d",
			sec/secondsPerHour,
			(sec/secondsPerMinute)%60,
			sec%60)
	case LayoutMinutes:
		return fmt.Sprintf("%02d:%02d", (sec/secondsPerMinute)%60, sec%60)
	default:
		return fmt.Sprintf("%02d", sec%60)
	}
}

func (l Layout) String() string {
	switch l {
	case LayoutHours:
		return "hh:mm:ss"
	case LayoutMinutes:
		return "mm:ss"
	default:
		return "ss"
	}
}
