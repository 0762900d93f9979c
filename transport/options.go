package transport

import (
	"time"

	"go.uber.org/zap"

	"github.com/luma/countdown/protocol"
	"github.com/luma/countdown/storage"
)

const (
	// ReadBufferSize bounds the single read made on every connection.
	ReadBufferSize = 4096

	DefaultReadTimeout = 30 * time.Second
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on, 0 picks a free port
	Port int

	// Reuseport controls setting SO_REUSEPORT, which allows several
	// listeners to share Port.
	Reuseport bool

	// NumListeners defaults to the number of CPUs when Reuseport is set and
	// to 1 otherwise.
	NumListeners int

	// ParseMode is how strictly request durations are parsed
	ParseMode protocol.ParseMode

	// RedThreshold defaults to protocol.DefaultRedThreshold
	RedThreshold *uint64

	// Tick defaults to protocol.DefaultTick
	Tick time.Duration

	// ReadTimeout bounds how long we wait for a client to send its request
	ReadTimeout time.Duration

	// Store records running countdowns. Defaults to an in-memory store.
	Store storage.Store

	Log *zap.Logger
}

func (o Options) streamer() *protocol.Streamer {
	s := protocol.NewStreamer()

	if o.RedThreshold != nil {
		s.RedThreshold = *o.RedThreshold
	}

	if o.Tick > 0 {
		s.Tick = o.Tick
	}

	return s
}
