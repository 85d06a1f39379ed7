package session

import (
	"errors"
	"fmt"

	"github.com/cardlink/cardlink/pkg/protocol"
)

var (
	// ErrNotConnected is returned by Send outside the Connected state.
	ErrNotConnected = errors.New("session: not connected")

	// ErrPermanentlyFailed is returned by Connect after reconnection gave up,
	// and wraps the error passed to Notifier.NotifyFailure.
	ErrPermanentlyFailed = errors.New("session: permanently failed")

	// ErrConnectAborted is returned by Connect when Disconnect ran during the dial.
	ErrConnectAborted = errors.New("session: connect aborted")

	// ErrLivenessLost is the cause recorded when the peer stays silent too long.
	ErrLivenessLost = errors.New("session: liveness lost")

	// ErrInvalidConfig is wrapped by Config.Validate errors.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// SendError reports a frame that could not be written.
type SendError struct {
	Action protocol.Action
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("session: send %s: %v", e.Action, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
