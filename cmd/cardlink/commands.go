package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cardlink/cardlink/pkg/protocol"
)

var errEmptyCommand = errors.New("empty command")

// command is one parsed stdin line.
type command struct {
	quit    bool
	action  protocol.Action
	payload []string
}

// commandActions maps the words typed at the prompt to protocol actions.
var commandActions = map[string]struct {
	action  protocol.Action
	argName string
}{
	"play":      {protocol.ActionPlay, "card"},
	"draw":      {protocol.ActionDraw, ""},
	"color":     {protocol.ActionColorChange, "suit"},
	"skip":      {protocol.ActionSkip, ""},
	"forcedraw": {protocol.ActionForceDraw, ""},
	"requeue":   {protocol.ActionRequeue, ""},
	"enter":     {protocol.ActionEnter, ""},
}

const commandHelp = "commands: play <card>, draw, color <suit>, skip, forcedraw, requeue, enter, quit"

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, errEmptyCommand
	}

	word := strings.ToLower(fields[0])
	if word == "quit" || word == "exit" {
		return command{quit: true}, nil
	}

	entry, ok := commandActions[word]
	if !ok {
		return command{}, fmt.Errorf("unknown command %q (%s)", fields[0], commandHelp)
	}
	args := fields[1:]
	if entry.argName == "" {
		if len(args) != 0 {
			return command{}, fmt.Errorf("%s takes no argument", word)
		}
		return command{action: entry.action}, nil
	}
	if len(args) != 1 {
		return command{}, fmt.Errorf("usage: %s <%s>", word, entry.argName)
	}
	return command{action: entry.action, payload: args}, nil
}

// formatEvent renders a server message for the terminal.
func formatEvent(ev protocol.Event) string {
	if len(ev.Fields) == 0 {
		return "<< " + ev.Name
	}
	return "<< " + ev.Name + " " + strings.Join(ev.Fields, ",")
}
