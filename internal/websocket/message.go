package websocket

import (
	"encoding/json"
	"time"

	"pad-sync-server/internal/domain"
)

type MessageType string

const (
	TypeItemCreated MessageType = "item_created"
	TypeItemUpdated MessageType = "item_updated"
	TypeItemDeleted MessageType = "item_deleted"
	TypeRoomCleared MessageType = "room_cleared"
	TypeRoomUpdated MessageType = "room_updated"
	TypeRoomDeleted MessageType = "room_deleted"
	TypeError       MessageType = "error"
	TypePing        MessageType = "ping"
	TypePong        MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ItemsPayload carries one or more created or updated items. Batch creates
// are delivered as a single message.
type ItemsPayload struct {
	RoomKey string         `json:"room_key"`
	Items   []*domain.Item `json:"items"`
}

type ItemDeletedPayload struct {
	RoomKey string `json:"room_key"`
	ItemID  string `json:"item_id"`
}

type RoomClearedPayload struct {
	RoomKey string `json:"room_key"`
	Removed int    `json:"removed"`
}

type RoomPayload struct {
	RoomKey string       `json:"room_key"`
	Name    string       `json:"name,omitempty"`
	Theme   domain.Theme `json:"theme,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
