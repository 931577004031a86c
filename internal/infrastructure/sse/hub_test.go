package sse

import (
	"encoding/json"
	"testing"

	"github.com/collabify/collabify/internal/domain/notification"
)

func drain(c *notification.SSEClient) []*notification.SSEMessage {
	var msgs []*notification.SSEMessage
	for {
		select {
		case m := <-c.MessageChan:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestBroadcastToUserReachesAllConnections(t *testing.T) {
	hub := NewHub()
	userID := "user-1"
	tab1 := notification.NewSSEClient("c1", &userID)
	tab2 := notification.NewSSEClient("c2", &userID)
	other := "user-2"
	stranger := notification.NewSSEClient("c3", &other)
	hub.Register(tab1)
	hub.Register(tab2)
	hub.Register(stranger)

	hub.BroadcastToUser(userID, notification.NewSSEMessage("notification:new", json.RawMessage(`{}`)))

	if got := len(drain(tab1)); got != 1 {
		t.Fatalf("tab1 got %d messages, want 1", got)
	}
	if got := len(drain(tab2)); got != 1 {
		t.Fatalf("tab2 got %d messages, want 1", got)
	}
	if got := len(drain(stranger)); got != 0 {
		t.Fatalf("stranger got %d messages, want 0", got)
	}
}

func TestRoomBroadcastScopedToJoined(t *testing.T) {
	hub := NewHub()
	a := "a"
	b := "b"
	inRoom := notification.NewSSEClient("c1", &a)
	outOfRoom := notification.NewSSEClient("c2", &b)
	hub.Register(inRoom)
	hub.Register(outOfRoom)
	hub.JoinRoom("c1", "conversation:x")

	hub.BroadcastToRoom("conversation:x", notification.NewSSEMessage("message:new", json.RawMessage(`{}`)))

	if got := len(drain(inRoom)); got != 1 {
		t.Fatalf("joined client got %d messages, want 1", got)
	}
	if got := len(drain(outOfRoom)); got != 0 {
		t.Fatalf("outside client got %d messages, want 0", got)
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	hub := NewHub()
	a := "a"
	c := notification.NewSSEClient("c1", &a)
	hub.Register(c)
	hub.JoinRoom("c1", "conversation:x")
	hub.LeaveRoom("c1", "conversation:x")

	hub.BroadcastToRoom("conversation:x", notification.NewSSEMessage("message:new", json.RawMessage(`{}`)))

	if got := len(drain(c)); got != 0 {
		t.Fatalf("left client got %d messages, want 0", got)
	}
}

func TestUnregisterPrunesRooms(t *testing.T) {
	hub := NewHub()
	a := "a"
	c := notification.NewSSEClient("c1", &a)
	hub.Register(c)
	hub.JoinRoom("c1", "conversation:x")
	hub.Unregister("c1")

	// Must not panic on a closed channel.
	hub.BroadcastToRoom("conversation:x", notification.NewSSEMessage("message:new", json.RawMessage(`{}`)))

	if hub.GetClientCount() != 0 {
		t.Fatalf("expected no clients after unregister")
	}
}

func TestJoinRoomUnknownClientIgnored(t *testing.T) {
	hub := NewHub()
	hub.JoinRoom("ghost", "conversation:x")
	hub.BroadcastToRoom("conversation:x", notification.NewSSEMessage("message:new", json.RawMessage(`{}`)))
}
