package session

import (
	"errors"

	"github.com/cardlink/cardlink/pkg/liveness"
	"github.com/cardlink/cardlink/pkg/log"
	"github.com/cardlink/cardlink/pkg/protocol"
	"github.com/cardlink/cardlink/pkg/transport"
)

// receive reads tr until it fails. A read error, end of stream or malformed
// line hands the connection to the loss path; it is never resynchronized.
func (s *Session) receive(gen uint64, tr *transport.Transport, mon *liveness.Monitor) {
	logger := s.logger.With(log.String("conn_id", tr.ID()))
	logger.Debug("receive loop started")

	for {
		line, err := tr.ReadLine()
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) {
				logger.Info("read failed", log.Err(err))
			}
			s.lost(gen, err)
			return
		}
		if len(line) == 0 {
			continue
		}

		ev, err := protocol.ParseEvent(line)
		if err != nil {
			s.metrics.MalformedFrame()
			logger.Warn("malformed frame",
				log.Err(err),
				log.String("line", string(line)),
			)
			s.lost(gen, err)
			return
		}
		s.dispatch(mon, ev, logger)
	}
}

func (s *Session) dispatch(mon *liveness.Monitor, ev protocol.Event, logger log.Logger) {
	// A server HEARTBEAT is liveness; only our own heartB coming back is not.
	echo := ev.HeartbeatEcho()
	mon.Observe(echo)
	s.metrics.FrameReceived(ev.Kind.String())

	switch {
	case ev.Kind == protocol.EventUnknown:
		logger.Info("unknown server event", log.String("name", ev.Name))
	case ev.Kind == protocol.EventHeartbeat && !echo && s.cfg.AutoHeartbeat:
		s.SendAction(protocol.ActionHeartbeat)
	}

	if h := s.messageHandler(); h != nil {
		h(ev)
	}
}
