package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("read timed out")
	ErrNotConnected     = errors.New("transport is not connected")
	ErrClosed           = errors.New("transport is closed")
)

// DefaultTimeout is applied when Options carries no timeout.
const DefaultTimeout = 5 * time.Second

// Transport is the byte stream the protocol client talks over. The
// client owns exactly one Transport for its lifetime; tests substitute
// a scripted implementation.
type Transport interface {
	Connect() error
	io.ReadWriteCloser
}

// TCP speaks to the admin console over a TCP socket.
//
// A single timeout, fixed at construction, bounds the dial and each
// individual Read and Write via per-call deadlines. Close is
// idempotent and terminal: a closed TCP cannot be reconnected.
type TCP struct {
	addr    string
	timeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	closed bool

	log *zap.Logger
}

func NewTCP(options Options) *TCP {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &TCP{
		addr:    net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		timeout: timeout,
		log:     log,
	}
}

// Connect dials the admin console, bounded by the configured timeout.
func (t *TCP) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	if t.conn != nil {
		// Already connected.
		return nil
	}

	t.log.Debug("Dialing admin console",
		zap.String("addr", t.addr),
		zap.Duration("timeout", t.timeout))

	conn, err := net.DialTimeout("tcp", t.addr, t.timeout)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, t.addr, err)
	}

	t.conn = conn

	return nil
}

// Read reads from the connection. Every call gets a fresh deadline of
// the configured timeout, so a response spanning several reads is not
// bounded cumulatively. End of stream surfaces as a plain io.EOF so
// callers can frame against it.
func (t *TCP) Read(p []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, fmt.Errorf("%w: set read deadline: %w", ErrConnectionFailed, err)
	}

	n, err := conn.Read(p)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, fmt.Errorf("%w after %s", ErrTimeout, t.timeout)
		}

		return n, err
	}

	return n, nil
}

// Write writes to the connection and succeeds only if every byte was
// accepted.
func (t *TCP) Write(p []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}

	if err := conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, fmt.Errorf("%w: set write deadline: %w", ErrConnectionFailed, err)
	}

	n, err := conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: write: %w", ErrConnectionFailed, err)
	}

	if n < len(p) {
		return n, io.ErrShortWrite
	}

	return n, nil
}

// Close closes the connection. Calling Close again is a no-op.
func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	if t.conn == nil {
		return nil
	}

	t.log.Debug("Closing admin connection", zap.String("addr", t.addr))

	err := t.conn.Close()
	t.conn = nil

	return err
}

func (t *TCP) current() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}

	if t.conn == nil {
		return nil, ErrNotConnected
	}

	return t.conn, nil
}

var _ Transport = (*TCP)(nil)
