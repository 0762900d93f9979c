package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/countdown/protocol"
	"github.com/luma/countdown/storage"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr      string
	reuseport bool

	numListeners int
	listeners    []*TCPListener

	store     storage.Store
	ownsStore bool

	streamer    *protocol.Streamer
	parseMode   protocol.ParseMode
	readTimeout time.Duration

	log *zap.Logger
}

func NewTCP(options Options) *TCP {
	numListeners := options.NumListeners

	if !options.Reuseport {
		// Without SO_REUSEPORT only one socket can bind the port
		numListeners = 1
	} else if numListeners < 1 {
		numListeners = runtime.NumCPU()
	}

	store, ownsStore := options.Store, false
	if store == nil {
		store, ownsStore = storage.NewInmemoryStore(), true
	}

	readTimeout := options.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &TCP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		reuseport:    options.Reuseport,
		numListeners: numListeners,
		listeners:    make([]*TCPListener, 0, numListeners),
		store:        store,
		ownsStore:    ownsStore,
		streamer:     options.streamer(),
		parseMode:    options.ParseMode,
		readTimeout:  readTimeout,
		log:          log,
	}
}

// Start binds every listener and starts accepting connections. It returns
// once the listeners are bound, so the server can be dialled straight away.
func (t *TCP) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	t.cancel = cancel

	t.log.Info("Starting tcp listeners",
		zap.Int("count", t.numListeners),
		zap.Bool("reuseport", t.reuseport))

	addr := t.addr
	for i := 0; i < t.numListeners; i++ {
		listener, err := t.listen(addr)
		if err != nil {
			cancel()
			for _, l := range t.listeners {
				err = multierr.Append(err, l.Close())
			}

			t.listeners = t.listeners[:0]
			return err
		}

		// When asked for any free port, every other listener has to share
		// the one the first listener got.
		addr = listener.Addr().String()

		t.startListener(ctx, listener)
	}

	return nil
}

func (t *TCP) listen(addr string) (net.Listener, error) {
	if t.reuseport {
		return reuseport.Listen("tcp", addr)
	}

	return net.Listen("tcp", addr)
}

func (t *TCP) startListener(ctx context.Context, l net.Listener) {
	id := len(t.listeners)
	listener := NewTCPListener(ctx, id, l, t,
		t.log.Named("listener").With(zap.Int("listener", id)))

	t.listeners = append(t.listeners, listener)

	t.stopWaiter.Add(1)
	go func() {
		defer t.stopWaiter.Done()

		if err := listener.Serve(); err != nil {
			t.log.Error("Listener stopped unexpectedly", zap.Error(err))
		}
	}()
}

// Addr returns the address the server is listening on, or nil if it has
// not been started.
func (t *TCP) Addr() net.Addr {
	if len(t.listeners) == 0 {
		return nil
	}

	return t.listeners[0].Addr()
}

func (t *TCP) Store() storage.Store {
	return t.store
}

// ActiveCountdowns returns the number of countdowns currently streaming.
func (t *TCP) ActiveCountdowns() int {
	return t.store.Len()
}

// Shutdown stops accepting new connections and waits for running countdowns
// to finish, or for ctx to be done, whichever comes first. Countdowns still
// running when ctx is done are left alone, use Close to stop them.
func (t *TCP) Shutdown(ctx context.Context) error {
	t.log.Info("Shutting down TCP server")
	err := t.closeListeners()

	done := make(chan struct{})
	go func() {
		t.wait()
		close(done)
	}()

	select {
	case <-done:
		return err

	case <-ctx.Done():
		return multierr.Append(err, ctx.Err())
	}
}

// Close immediately closes all listeners and connections, aborting any
// running countdowns.
//
// For a graceful shutdown, use Shutdown()
func (t *TCP) Close() error {
	t.log.Info("Stopping TCP server")

	if t.cancel != nil {
		t.cancel()
	}

	err := t.closeListeners()
	for _, listener := range t.listeners {
		listener.closeConns()
	}

	t.log.Debug("Waiting for listeners")
	t.wait()
	t.log.Debug("Listeners stopped")

	if t.ownsStore {
		err = multierr.Append(err, t.store.Close())
	}

	return err
}

func (t *TCP) closeListeners() (err error) {
	for _, listener := range t.listeners {
		err = multierr.Append(err, listener.Close())
	}

	return err
}

func (t *TCP) wait() {
	t.stopWaiter.Wait()

	for _, listener := range t.listeners {
		listener.connWaiter.Wait()
	}
}

type TCPListener struct {
	ctx context.Context

	id       int
	listener net.Listener
	server   *TCP
	log      *zap.Logger

	mu          sync.Mutex
	activeConns map[*TCPConn]struct{}
	connsClosed bool
	connWaiter  sync.WaitGroup
}

func NewTCPListener(
	ctx context.Context,
	id int,
	listener net.Listener,
	server *TCP,
	log *zap.Logger,
) *TCPListener {
	return &TCPListener{
		ctx:         ctx,
		id:          id,
		listener:    listener,
		server:      server,
		activeConns: make(map[*TCPConn]struct{}),
		log:         log,
	}
}

func (t *TCPListener) Addr() net.Addr {
	return t.listener.Addr()
}

// Close stops accepting connections. Connections that are already being
// served are left alone.
func (t *TCPListener) Close() error {
	if err := t.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}

// closeConns closes every active connection. Connections accepted after
// this are closed as soon as they are added.
func (t *TCPListener) closeConns() {
	t.mu.Lock()
	t.connsClosed = true
	conns := make([]*TCPConn, 0, len(t.activeConns))
	for conn := range t.activeConns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			t.log.Debug("Connection did not close cleanly", zap.Error(err))
		}
	}
}

// Serve accepts connections until the listener is closed. Every connection
// is served by its own goroutine.
func (t *TCPListener) Serve() error {
	var backoff time.Duration

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || t.ctx.Err() != nil {
				t.log.Info("Stopped accepting new connections")
				return nil
			}

			if backoff == 0 {
				backoff = minAcceptBackoff
			} else if backoff *= 2; backoff > maxAcceptBackoff {
				backoff = maxAcceptBackoff
			}

			t.log.Error("Failed to accept connection",
				zap.Duration("retryIn", backoff),
				zap.Error(err))

			select {
			case <-t.ctx.Done():
				return nil
			case <-time.After(backoff):
			}

			continue
		}

		backoff = 0

		if t.ctx.Err() != nil {
			conn.Close()
			return nil
		}

		tcpConn := NewTCPConn(t.ctx, conn, t.server, t.id, t.log.Named("conn"))
		if !t.addConn(tcpConn) {
			tcpConn.Close()
			return nil
		}

		t.connWaiter.Add(1)
		go func() {
			defer t.connWaiter.Done()
			defer t.removeConn(tcpConn)

			tcpConn.Serve()
		}()
	}
}

// addConn tracks conn and returns false if the listener's connections have
// already been closed.
func (t *TCPListener) addConn(conn *TCPConn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connsClosed {
		return false
	}

	t.activeConns[conn] = struct{}{}
	return true
}

func (t *TCPListener) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}

type TCPConn struct {
	ctx    context.Context
	cancel context.CancelFunc

	id       string
	listener int
	conn     net.Conn
	server   *TCP

	closeOnce sync.Once
	closeErr  error

	log *zap.Logger
}

func NewTCPConn(
	parentCtx context.Context,
	conn net.Conn,
	server *TCP,
	listener int,
	log *zap.Logger,
) *TCPConn {
	ctx, cancel := context.WithCancel(parentCtx)
	id := uuid.NewString()

	return &TCPConn{
		ctx:      ctx,
		cancel:   cancel,
		id:       id,
		listener: listener,
		conn:     conn,
		server:   server,
		log: log.With(
			zap.String("id", id),
			zap.Stringer("remote", conn.RemoteAddr())),
	}
}

func (t *TCPConn) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()
		t.closeErr = t.conn.Close()
	})

	return t.closeErr
}

// Serve reads a single request from the connection and answers it with
// either a countdown or the usage message. The connection is closed on return.
func (t *TCPConn) Serve() {
	defer func() {
		if err := t.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			t.log.Warn("Failed to close connection cleanly", zap.Error(err))
		}
	}()

	data, err := t.readRequest()
	if err != nil {
		t.log.Warn("Failed to read client request", zap.Error(err))
		return
	}

	t.log.Info("Received request", zap.ByteString("requestLine", protocol.RequestLine(data)))

	total, err := t.parse(data)
	if err != nil {
		t.log.Info("Invalid request, sending usage", zap.Error(err))

		if err := protocol.WriteUsage(t.conn); err != nil {
			t.log.Warn("Failed to write usage", zap.Error(err))
		}

		return
	}

	if err := t.register(total); err != nil {
		t.log.Warn("Failed to register countdown", zap.Error(err))
	}
	defer t.unregister()

	log := t.log.With(zap.Uint64("totalSeconds", total))
	log.Info("Starting countdown")

	err = t.server.streamer.Stream(t.ctx, bufio.NewWriter(t.conn), total)
	switch {
	case err == nil:
		log.Info("Countdown complete")

	case errors.Is(err, context.Canceled):
		log.Info("Countdown cancelled")

	default:
		log.Warn("Countdown aborted", zap.Error(err))
	}
}

func (t *TCPConn) readRequest() ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.server.readTimeout)); err != nil {
		return nil, err
	}

	buf := make([]byte, ReadBufferSize)
	n, err := t.conn.Read(buf)

	// A client that half-closes without sending anything makes an empty
	// request, answered with the usage message like any other bad request.
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return nil, err
	}

	// Countdowns never read again, but clear the deadline anyway so it
	// can't surprise anyone later.
	if err := t.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}

	return buf[:n], nil
}

func (t *TCPConn) parse(data []byte) (uint64, error) {
	components, err := protocol.ParseRequest(data, t.server.parseMode)
	if err != nil {
		return 0, err
	}

	return components.Total()
}

func (t *TCPConn) register(total uint64) error {
	ctx, cancel := context.WithTimeout(t.ctx, 3*time.Second)
	defer cancel()

	return t.server.store.Set(ctx, t.id, storage.Countdown{
		Remote:       t.conn.RemoteAddr().String(),
		Listener:     t.listener,
		TotalSeconds: total,
		Layout:       protocol.LayoutFor(total).String(),
		StartedAt:    time.Now().UTC(),
	})
}

func (t *TCPConn) unregister() {
	// The connection context may already be cancelled here
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := t.server.store.Delete(ctx, t.id); err != nil && !errors.Is(err, storage.ErrStoreClosed) {
		t.log.Warn("Failed to unregister countdown", zap.Error(err))
	}
}
