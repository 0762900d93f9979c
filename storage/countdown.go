package storage

import "time"

// Countdown is the registry entry for a running countdown.
type Countdown struct {
	Remote       string    `json:"remote"`
	Listener     int       `json:"listener"`
	TotalSeconds uint64    `json:"totalSeconds"`
	Layout       string    `json:"layout"`
	StartedAt    time.Time `json:"startedAt"`
}
