package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newTestManager(maxConn int) *Manager {
	return NewManager(maxConn, time.Second, time.Minute, 50*time.Second)
}

func newTestClient(id, room string, m *Manager) *Client {
	return &Client{ID: id, RoomKey: room, Manager: m, Send: make(chan []byte, 4)}
}

func TestBroadcastToRoomOnlyReachesRoomClients(t *testing.T) {
	m := newTestManager(10)
	a := newTestClient("a", "ROOMAAAAAA", m)
	b := newTestClient("b", "ROOMAAAAAA", m)
	other := newTestClient("c", "ROOMBBBBBB", m)
	m.registerClient(a)
	m.registerClient(b)
	m.registerClient(other)

	msg, err := NewMessage(TypeItemDeleted, &ItemDeletedPayload{RoomKey: "ROOMAAAAAA", ItemID: "item-1"})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	if err := m.BroadcastToRoom("ROOMAAAAAA", msg); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.Send:
			var got Message
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			var payload ItemDeletedPayload
			_ = got.UnmarshalPayload(&payload)
			if got.Type != TypeItemDeleted || payload.ItemID != "item-1" {
				t.Errorf("unexpected message: %+v %+v", got, payload)
			}
		default:
			t.Errorf("client %s received nothing", c.ID)
		}
	}

	select {
	case <-other.Send:
		t.Error("client in another room must not receive the broadcast")
	default:
	}
}

func TestRegisterRespectsRoomLimit(t *testing.T) {
	m := newTestManager(1)
	first := newTestClient("a", "ROOMAAAAAA", m)
	second := newTestClient("b", "ROOMAAAAAA", m)
	m.registerClient(first)
	m.registerClient(second)

	if n := m.RoomConnections("ROOMAAAAAA"); n != 1 {
		t.Errorf("expected 1 connection, got %d", n)
	}
	if _, ok := <-second.Send; ok {
		t.Error("rejected client must have its send channel closed")
	}
}

func TestSlowClientIsDisconnected(t *testing.T) {
	m := newTestManager(10)
	slow := &Client{ID: "slow", RoomKey: "ROOMAAAAAA", Manager: m, Send: make(chan []byte)}
	m.registerClient(slow)

	msg, _ := NewMessage(TypeRoomCleared, &RoomClearedPayload{RoomKey: "ROOMAAAAAA"})
	_ = m.BroadcastToRoom("ROOMAAAAAA", msg)

	if n := m.RoomConnections("ROOMAAAAAA"); n != 0 {
		t.Errorf("expected slow client to be dropped, got %d connections", n)
	}
}

type recordingHandler struct {
	got chan *Message
}

func (h *recordingHandler) HandleWebSocketMessage(client *Client, msg *Message) error {
	h.got <- msg
	return nil
}

func TestRunDispatchesAndStops(t *testing.T) {
	m := newTestManager(10)
	h := &recordingHandler{got: make(chan *Message, 1)}
	m.SetMessageHandler(h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	c := newTestClient("a", "ROOMAAAAAA", m)
	m.Register <- c
	m.HandleMessage <- &ClientMessage{Client: c, Message: []byte(`{"type":"ping"}`)}

	select {
	case msg := <-h.got:
		if msg.Type != TypePing {
			t.Errorf("expected ping, got %s", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("message was not dispatched")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	if n := m.RoomConnections("ROOMAAAAAA"); n != 0 {
		t.Errorf("expected all clients closed, got %d", n)
	}
}
