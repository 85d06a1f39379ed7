package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cardlink/cardlink/pkg/log"
)

// DefaultMaxLineBytes bounds a single inbound line.
const DefaultMaxLineBytes = 64 << 10

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Options tune a Transport.
type Options struct {
	// DialTimeout bounds Open. Zero leaves it to the OS.
	DialTimeout time.Duration

	// MaxLineBytes bounds ReadLine. Zero means DefaultMaxLineBytes.
	MaxLineBytes int

	Logger log.Logger
}

// Transport is one TCP connection with a line-oriented reader and writer.
type Transport struct {
	id      string
	address string
	conn    net.Conn
	reader  *bufio.Reader
	maxLine int
	logger  log.Logger

	wmu       sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open dials address over TCP.
func Open(ctx context.Context, d Dialer, address string, opts Options) (*Transport, error) {
	if d == nil {
		d = &net.Dialer{}
	}
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, &ConnectError{Address: address, Reason: err}
	}
	return newTransport(conn, address, opts.MaxLineBytes, logger), nil
}

// New wraps an established connection.
func New(conn net.Conn, opts Options) *Transport {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return newTransport(conn, addr, opts.MaxLineBytes, logger)
}

func newTransport(conn net.Conn, address string, maxLine int, logger log.Logger) *Transport {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	id := uuid.NewString()
	return &Transport{
		id:      id,
		address: address,
		conn:    conn,
		reader:  bufio.NewReader(conn),
		maxLine: maxLine,
		logger:  logger.With(log.String("conn_id", id), log.String("address", address)),
	}
}

// ID returns the connection identifier used in log entries.
func (t *Transport) ID() string { return t.id }

// Address returns the remote address.
func (t *Transport) Address() string { return t.address }

// ReadLine blocks until a full line arrives and returns it without its
// terminator. It must only be called from one goroutine.
func (t *Transport) ReadLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := t.reader.ReadSlice('\n')
		if len(line)+len(chunk) > t.maxLine {
			return nil, &ReadError{Reason: ErrLineTooLong}
		}
		line = append(line, chunk...)

		switch {
		case err == nil:
			return trimEOL(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) > 0 {
				return trimEOL(line), nil
			}
			return nil, ErrEndOfStream
		case t.closed.Load():
			return nil, ErrClosed
		default:
			return nil, &ReadError{Reason: err}
		}
	}
}

func trimEOL(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return line[:n]
}

// WriteLine writes b followed by a newline. Concurrent calls are
// serialized. Writing to a closed Transport logs a warning and returns
// ErrClosed.
func (t *Transport) WriteLine(b []byte) error {
	if t.closed.Load() {
		t.logger.Warn("write on closed connection dropped", log.Int("bytes", len(b)))
		return ErrClosed
	}

	buf := make([]byte, 0, len(b)+1)
	buf = append(buf, b...)
	buf = append(buf, '\n')

	t.wmu.Lock()
	defer t.wmu.Unlock()
	if _, err := t.conn.Write(buf); err != nil {
		if t.closed.Load() {
			t.logger.Warn("write on closed connection dropped", log.Int("bytes", len(b)))
			return ErrClosed
		}
		return err
	}
	return nil
}

// Close closes the socket. Only the first call has an effect.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.closeErr = t.conn.Close()
		t.logger.Debug("connection closed")
	})
	return t.closeErr
}

// Closed reports whether Close has been called.
func (t *Transport) Closed() bool { return t.closed.Load() }
