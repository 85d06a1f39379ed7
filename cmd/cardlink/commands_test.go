package main

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cardlink/cardlink/pkg/protocol"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    command
		wantErr bool
	}{
		{"play 10_of_heart", command{action: protocol.ActionPlay, payload: []string{"10_of_heart"}}, false},
		{"  PLAY   ace_of_spade ", command{action: protocol.ActionPlay, payload: []string{"ace_of_spade"}}, false},
		{"draw", command{action: protocol.ActionDraw}, false},
		{"color heart", command{action: protocol.ActionColorChange, payload: []string{"heart"}}, false},
		{"skip", command{action: protocol.ActionSkip}, false},
		{"forcedraw", command{action: protocol.ActionForceDraw}, false},
		{"requeue", command{action: protocol.ActionRequeue}, false},
		{"enter", command{action: protocol.ActionEnter}, false},
		{"quit", command{quit: true}, false},
		{"exit", command{quit: true}, false},
		{"play", command{}, true},
		{"play a b", command{}, true},
		{"draw 3", command{}, true},
		{"fold", command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCommand(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseCommand(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseCommand_Empty(t *testing.T) {
	if _, err := parseCommand("   "); !errors.Is(err, errEmptyCommand) {
		t.Errorf("error = %v, want errEmptyCommand", err)
	}
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		ev   protocol.Event
		want string
	}{
		{protocol.Event{Name: "CARD_PLAYED_VALID", Fields: []string{"10_of_heart"}}, "<< CARD_PLAYED_VALID 10_of_heart"},
		{protocol.Event{Name: "GAME_OVER", Fields: []string{"WIN", "bob"}}, "<< GAME_OVER WIN,bob"},
		{protocol.Event{Name: "SKIP_PENDING"}, "<< SKIP_PENDING"},
	}

	for _, tt := range tests {
		if got := formatEvent(tt.ev); got != tt.want {
			t.Errorf("formatEvent() = %q, want %q", got, tt.want)
		}
	}
}
