package protocol

import (
	"strings"
)

// EventKind classifies a server message.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventGameStart
	EventPlayerReconnected
	EventCardPlayedInvalid
	EventCardPlayedValid
	EventCardPlayedUpdate
	EventDrawSuccess
	EventCardDrawnUpdate
	EventTurnSwitch
	EventSuitUpdate
	EventSkipPending
	EventForceDrawPending
	EventOpponentDisconnected
	EventGameOver
	EventSessionTerminated
	EventHeartbeat
	// EventEcho is a client frame sent back by the server.
	EventEcho
)

// gameStartName is followed by 4 reserved length digits on the wire.
const gameStartName = "gameSt"

// lastCardMarker is the optional second field of CARD_PLAYED_VALID.
const lastCardMarker = "LAST_CARD_PLAYED"

type eventSpec struct {
	kind      EventKind
	minFields int
}

var eventTable = map[string]eventSpec{
	"PLAYER_RECONNECTED":    {EventPlayerReconnected, 0},
	"CARD_PLAYED_INVALID":   {EventCardPlayedInvalid, 0},
	"CARD_PLAYED_VALID":     {EventCardPlayedValid, 1},
	"CARD_PLAYED_UPDATE":    {EventCardPlayedUpdate, 1},
	"DRAW_SUCCESS":          {EventDrawSuccess, 1},
	"CARD_DRAWN_UPDATE":     {EventCardDrawnUpdate, 0},
	"TURN_SWITCH":           {EventTurnSwitch, 1},
	"SUIT_UPDATE":           {EventSuitUpdate, 1},
	"SKIP_PENDING":          {EventSkipPending, 0},
	"FORCEDRAW_PENDING":     {EventForceDrawPending, 0},
	"OPPONENT_DISCONNECTED": {EventOpponentDisconnected, 0},
	"GAME_OVER":             {EventGameOver, 1},
	"SESSION_TERMINATED":    {EventSessionTerminated, 0},
	"HEARTBEAT":             {EventHeartbeat, 0},
	gameStartName:           {EventGameStart, 4},
}

var kindNames = map[EventKind]string{
	EventUnknown:              "unknown",
	EventGameStart:            "game_start",
	EventPlayerReconnected:    "player_reconnected",
	EventCardPlayedInvalid:    "card_played_invalid",
	EventCardPlayedValid:      "card_played_valid",
	EventCardPlayedUpdate:     "card_played_update",
	EventDrawSuccess:          "draw_success",
	EventCardDrawnUpdate:      "card_drawn_update",
	EventTurnSwitch:           "turn_switch",
	EventSuitUpdate:           "suit_update",
	EventSkipPending:          "skip_pending",
	EventForceDrawPending:     "forcedraw_pending",
	EventOpponentDisconnected: "opponent_disconnected",
	EventGameOver:             "game_over",
	EventSessionTerminated:    "session_terminated",
	EventHeartbeat:            "heartbeat",
	EventEcho:                 "echo",
}

// String returns a stable lowercase name, suitable as a metric label.
func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one decoded server message.
type Event struct {
	Kind EventKind
	// Name is the event name as sent, without the magic.
	Name   string
	Fields []string
	// Raw is the complete line.
	Raw string
	// Action is set for EventEcho and for echoed heartbeats.
	Action Action
}

// ParseEvent decodes one server line. The KIVUPS magic is optional on server
// events; lines naming no known event are EventUnknown. Echoes that fail to
// decode and known events with too few fields are malformed.
func ParseEvent(line []byte) (Event, error) {
	raw := string(line)
	body, prefixed := strings.CutPrefix(raw, Magic)
	offset := len(raw) - len(body)

	if prefixed && len(raw) >= OpcodeLen {
		if action, ok := ActionFor(raw[:OpcodeLen]); ok {
			frame, err := Decode(line)
			if err != nil {
				return Event{}, err
			}
			kind := EventEcho
			if action == ActionHeartbeat {
				kind = EventHeartbeat
			}
			return Event{Kind: kind, Name: raw[len(Magic):OpcodeLen], Fields: frame.Fields, Raw: raw, Action: action}, nil
		}
	}

	if strings.HasPrefix(body, gameStartName) {
		return parseGameStart(body, raw, offset)
	}

	name, rest, hasFields := strings.Cut(body, "|")
	ev := Event{Name: name, Raw: raw}
	if hasFields {
		ev.Fields = strings.Split(rest, "|")
	}

	entry, ok := eventTable[name]
	if !ok {
		ev.Kind = EventUnknown
		return ev, nil
	}
	ev.Kind = entry.kind
	if len(ev.Fields) < entry.minFields {
		return Event{}, malformed(offset+len(name), "%s carries %d fields, want at least %d", name, len(ev.Fields), entry.minFields)
	}
	return ev, nil
}

func parseGameStart(body, raw string, offset int) (Event, error) {
	entry := eventTable[gameStartName]
	offset += len(gameStartName)
	rest := body[len(gameStartName):]
	if len(rest) < LenWidth {
		return Event{}, malformed(offset, "truncated game state header")
	}
	if _, err := parseLen([]byte(rest[:LenWidth])); err != nil {
		return Event{}, malformed(offset, "%v", err)
	}
	fields := strings.Split(rest[LenWidth:], "|")
	if len(fields) < entry.minFields {
		return Event{}, malformed(offset+LenWidth, "game state carries %d fields, want at least %d", len(fields), entry.minFields)
	}
	return Event{Kind: EventGameStart, Name: gameStartName, Fields: fields, Raw: raw}, nil
}

// HeartbeatEcho reports whether e is this client's heartB sent back by the
// server, as opposed to a server-initiated HEARTBEAT.
func (e Event) HeartbeatEcho() bool {
	return e.Kind == EventHeartbeat && e.Action == ActionHeartbeat
}

// Payload returns the first field, or "" when there is none. For card events
// this is the card name, for SUIT_UPDATE the suit.
func (e Event) Payload() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0]
}

// LastCardPlayed reports whether a CARD_PLAYED_VALID ends the game.
func (e Event) LastCardPlayed() bool {
	if e.Kind != EventCardPlayedValid || len(e.Fields) < 2 {
		return false
	}
	for _, f := range e.Fields[1:] {
		if f == lastCardMarker {
			return true
		}
	}
	return false
}

// MyTurn reports whether a TURN_SWITCH hands the turn to this client.
func (e Event) MyTurn() bool {
	return e.Kind == EventTurnSwitch && e.Payload() == "1"
}

// Victory reports whether a GAME_OVER was won.
func (e Event) Victory() bool {
	return e.Kind == EventGameOver && e.Payload() == "VICTORY"
}
