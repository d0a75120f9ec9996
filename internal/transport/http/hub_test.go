package http

import (
	"encoding/json"
	"testing"

	"quizmaster-service/internal/domain"
)

func TestHubDeliversFrames(t *testing.T) {
	hub := NewHub()
	c := hub.Register("conn-1")

	hub.Notify("conn-1", domain.PlayerJoined{Pin: "123456", PlayerName: "Ana"})
	hub.Notify("someone-else", domain.GameStarting{})

	var msg struct {
		Type    string              `json:"type"`
		Payload domain.PlayerJoined `json:"payload"`
	}
	if err := json.Unmarshal(<-c.send, &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if msg.Type != domain.EventPlayerJoined || msg.Payload.PlayerName != "Ana" {
		t.Fatalf("unexpected frame %+v", msg)
	}
	if len(c.send) != 0 {
		t.Fatalf("expected no frames for other connections")
	}
}

func TestHubKicksSlowConnection(t *testing.T) {
	hub := NewHub()
	c := hub.Register("slow")

	for i := 0; i < sendBuffer; i++ {
		hub.Notify("slow", domain.AnswerProgress{Answered: i, Total: sendBuffer})
	}
	select {
	case <-c.kicked:
		t.Fatalf("kicked before the queue was full")
	default:
	}

	hub.Notify("slow", domain.GameEnd{})
	hub.Notify("slow", domain.GameEnd{})
	select {
	case <-c.kicked:
	default:
		t.Fatalf("expected slow connection to be kicked")
	}

	hub.Unregister("slow")
	hub.Unregister("slow")
	n := 0
	for range c.send {
		n++
	}
	if n != sendBuffer {
		t.Fatalf("expected %d queued frames, got %d", sendBuffer, n)
	}
}
