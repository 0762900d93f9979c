package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/luma/countdown/protocol"
)

var ErrNotConnected = errors.New("Client is not connected")

// Conn is a single connection to a countdown server. A server answers one
// request per connection, so a Conn can only be used for one countdown.
type Conn struct {
	addr string
	conn net.Conn

	log *zap.Logger
}

func New(log *zap.Logger) *Conn {
	return &Conn{
		log: log,
	}
}

func (c *Conn) Connect(ctx context.Context, addr string) error {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	c.addr = addr
	c.conn = conn

	return nil
}

func (c *Conn) Disconnect() error {
	if c.conn == nil {
		return ErrNotConnected
	}

	return c.conn.Close()
}

// Countdown asks the server for a countdown of duration, written as
// `s`, `m:s` or `h:m:s`, and waits for it to finish.
func (c *Conn) Countdown(ctx context.Context, duration string) (*protocol.Response, error) {
	req := fmt.Sprintf("GET /%s HTTP/1.1\r\nHost: %s\r\nUser-Agent: countdown-client\r\n\r\n",
		strings.TrimPrefix(duration, "/"), c.addr)

	return c.Send(ctx, []byte(req))
}

// Send writes a raw request to the server and reads the response until the
// server closes the connection, or ctx is done.
func (c *Conn) Send(ctx context.Context, req []byte) (*protocol.Response, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	// Unblock the read if the context is cancelled before the countdown ends
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			c.log.Debug("Context cancelled, disconnecting", zap.String("addr", c.addr))
			c.conn.Close()

		case <-done:
		}
	}()

	if _, err := c.conn.Write(req); err != nil {
		return nil, err
	}

	resp, err := protocol.ReadResponse(c.conn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, err
	}

	c.log.Debug("Received response",
		zap.String("addr", c.addr),
		zap.Int("lines", len(resp.Lines)),
		zap.Bool("alarm", resp.Alarm))

	return resp, nil
}
