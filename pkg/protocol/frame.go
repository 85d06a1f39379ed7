package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Magic prefixes every opcode and every server message.
	Magic = "KIVUPS"

	// OpcodeLen is the fixed width of an outbound opcode.
	OpcodeLen = 12

	// LenWidth is the number of decimal digits in a field length prefix.
	LenWidth = 4

	// MaxFieldLen is the largest field a 4-digit prefix can describe.
	MaxFieldLen = 9999
)

var (
	// ErrUnknownAction is returned when an action has no opcode.
	ErrUnknownAction = errors.New("protocol: unknown action")

	// ErrMissingPayload is returned when an action that carries data is encoded without it.
	ErrMissingPayload = errors.New("protocol: missing payload")

	// ErrFieldTooLong is returned when a field exceeds MaxFieldLen bytes.
	ErrFieldTooLong = errors.New("protocol: field too long")

	// ErrInvalidField is returned when a field contains a line terminator.
	ErrInvalidField = errors.New("protocol: field contains line terminator")

	// ErrMalformedFrame marks every decode failure. The stream is desynchronized
	// once this is seen.
	ErrMalformedFrame = errors.New("protocol: malformed frame")
)

// MalformedFrameError describes where a frame failed to decode.
type MalformedFrameError struct {
	Offset int
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("protocol: malformed frame at byte %d: %s", e.Offset, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedFrame.
func (e *MalformedFrameError) Unwrap() error { return ErrMalformedFrame }

func malformed(offset int, format string, args ...interface{}) error {
	return &MalformedFrameError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// Frame is one length-prefixed protocol message.
type Frame struct {
	Opcode string
	Fields []string
}

// Encode builds the frame for action on behalf of username. Payloads follow
// the username as additional fields.
func Encode(action Action, username string, payload ...string) ([]byte, error) {
	opcode, err := OpcodeFor(action)
	if err != nil {
		return nil, err
	}
	if action.TakesPayload() && len(payload) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingPayload, action)
	}
	fields := make([]string, 0, 1+len(payload))
	fields = append(fields, username)
	fields = append(fields, payload...)
	return EncodeFrame(Frame{Opcode: opcode, Fields: fields})
}

// EncodeFrame serializes f without a line terminator.
func EncodeFrame(f Frame) ([]byte, error) {
	if len(f.Opcode) != OpcodeLen {
		return nil, fmt.Errorf("%w: opcode %q is %d bytes, want %d", ErrMalformedFrame, f.Opcode, len(f.Opcode), OpcodeLen)
	}
	size := OpcodeLen
	for i, field := range f.Fields {
		if len(field) > MaxFieldLen {
			return nil, fmt.Errorf("%w: field %d is %d bytes", ErrFieldTooLong, i, len(field))
		}
		if strings.ContainsAny(field, "\r\n") {
			return nil, fmt.Errorf("%w: field %d", ErrInvalidField, i)
		}
		size += LenWidth + len(field)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, f.Opcode...)
	for _, field := range f.Fields {
		buf = appendLen(buf, len(field))
		buf = append(buf, field...)
	}
	return buf, nil
}

func appendLen(buf []byte, n int) []byte {
	digits := strconv.Itoa(n)
	for i := len(digits); i < LenWidth; i++ {
		buf = append(buf, '0')
	}
	return append(buf, digits...)
}

// Decode parses a length-prefixed frame. The line must not include its
// terminator.
func Decode(line []byte) (Frame, error) {
	if len(line) < OpcodeLen {
		return Frame{}, malformed(0, "short opcode: %d bytes", len(line))
	}
	f := Frame{Opcode: string(line[:OpcodeLen])}

	pos := OpcodeLen
	for pos < len(line) {
		if len(line)-pos < LenWidth {
			return Frame{}, malformed(pos, "truncated length prefix")
		}
		n, err := parseLen(line[pos : pos+LenWidth])
		if err != nil {
			return Frame{}, malformed(pos, "%v", err)
		}
		pos += LenWidth
		if n > len(line)-pos {
			return Frame{}, malformed(pos, "field length %d exceeds remaining %d bytes", n, len(line)-pos)
		}
		f.Fields = append(f.Fields, string(line[pos:pos+n]))
		pos += n
	}
	return f, nil
}

// parseLen accepts exactly LenWidth ASCII digits; strconv would also take signs.
func parseLen(b []byte) (int, error) {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-numeric length %q", b)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
