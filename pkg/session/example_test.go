package session_test

import (
	"bufio"
	"context"
	"fmt"
	"net"

	"github.com/cardlink/cardlink/pkg/protocol"
	"github.com/cardlink/cardlink/pkg/session"
)

// ExampleSession plays one card against a minimal server.
func ExampleSession() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer ln.Close()

	// The server accepts the card the player enters with.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		fmt.Fprint(conn, "KIVUPSCARD_PLAYED_VALID|10_of_heart\n")
		_, _ = r.ReadString('\n')
	}()

	s, err := session.New(session.DefaultConfig(ln.Addr().String(), "bob"))
	if err != nil {
		fmt.Println(err)
		return
	}

	played := make(chan protocol.Event, 1)
	s.SetMessageHandler(func(ev protocol.Event) {
		select {
		case played <- ev:
		default:
		}
	})

	if err := s.Connect(context.Background()); err != nil {
		fmt.Println(err)
		return
	}
	s.SendAction(protocol.ActionPlay, "10_of_heart")

	ev := <-played
	fmt.Println(ev.Name, ev.Payload())

	s.Disconnect()
	fmt.Println(s.State())

	// Output:
	// CARD_PLAYED_VALID 10_of_heart
	// Idle
}
