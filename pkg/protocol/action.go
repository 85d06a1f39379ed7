package protocol

import "fmt"

// Action names a client request.
type Action string

const (
	ActionEnter       Action = "enter"
	ActionPlay        Action = "play"
	ActionDraw        Action = "draw"
	ActionColorChange Action = "colorChange"
	ActionHeartbeat   Action = "heartbeat"
	ActionRequeue     Action = "requeue"
	ActionSkip        Action = "skip"
	ActionForceDraw   Action = "forceDraw"
	ActionReconnect   Action = "reconnect"
)

var opcodes = map[Action]string{
	ActionEnter:       Magic + "enterQ",
	ActionPlay:        Magic + "playCa",
	ActionDraw:        Magic + "drawCa",
	ActionColorChange: Magic + "suitCh",
	ActionHeartbeat:   Magic + "heartB",
	ActionRequeue:     Magic + "rQueue",
	ActionSkip:        Magic + "skipMv",
	ActionForceDraw:   Magic + "forceD",
	ActionReconnect:   Magic + "reConn",
}

var actionsByOpcode = func() map[string]Action {
	m := make(map[string]Action, len(opcodes))
	for a, op := range opcodes {
		m[op] = a
	}
	return m
}()

// Actions returns every action with an opcode, in a stable order.
func Actions() []Action {
	return []Action{
		ActionEnter, ActionPlay, ActionDraw, ActionColorChange, ActionHeartbeat,
		ActionRequeue, ActionSkip, ActionForceDraw, ActionReconnect,
	}
}

// OpcodeFor returns the 12-character opcode for a.
func OpcodeFor(a Action) (string, error) {
	op, ok := opcodes[a]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, string(a))
	}
	return op, nil
}

// ActionFor maps an opcode back to its action.
func ActionFor(opcode string) (Action, bool) {
	a, ok := actionsByOpcode[opcode]
	return a, ok
}

// TakesPayload reports whether a carries a data field after the username.
func (a Action) TakesPayload() bool {
	return a == ActionPlay || a == ActionColorChange
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := opcodes[a]
	return ok
}
