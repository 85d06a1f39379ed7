package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect matches every *ConnectError.
	ErrConnect = errors.New("transport: connect failed")

	// ErrEndOfStream is returned by ReadLine when the peer closed the connection.
	ErrEndOfStream = errors.New("transport: end of stream")

	// ErrClosed is returned by operations on a closed Transport.
	ErrClosed = errors.New("transport: closed")

	// ErrLineTooLong is wrapped by ReadError when a line exceeds MaxLineBytes.
	ErrLineTooLong = errors.New("transport: line too long")
)

// ConnectError reports a failed Open: refusal, timeout, DNS failure or an
// unreachable host.
type ConnectError struct {
	Address string
	Reason  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: connect %s: %v", e.Address, e.Reason)
}

// Unwrap exposes the underlying dial error.
func (e *ConnectError) Unwrap() []error { return []error{ErrConnect, e.Reason} }

// ReadError reports an I/O failure while reading.
type ReadError struct {
	Reason error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("transport: read: %v", e.Reason)
}

func (e *ReadError) Unwrap() error { return e.Reason }
