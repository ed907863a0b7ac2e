package handler

import (
	"log"
	"net/http"

	"pad-sync-server/internal/service"
	"pad-sync-server/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	manager  *websocket.Manager
	rooms    *service.RoomService
	upgrader ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, rooms *service.RoomService, readBufferSize, writeBufferSize int) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		rooms:   rooms,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection subscribes the caller to the feed of the room named by
// the "room" query parameter. Unknown or expired rooms are refused before
// the upgrade.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(r.Context(), r.URL.Query().Get("room"))
	if err != nil {
		log.Printf("[WebSocket] refusing subscription: %v", err)
		writeError(w, err, "Failed to open room feed")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Failed to upgrade connection: %v", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), room.Key, conn, h.manager)
	log.Printf("[WebSocket] client %s subscribed to room %s", client.ID, room.Key)

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler answers inbound frames. The feed is one-way apart
// from keepalive pings.
type WebSocketMessageHandler struct {
	manager *websocket.Manager
}

func NewWebSocketMessageHandler(manager *websocket.Manager) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{manager: manager}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypePing:
		pong, err := websocket.NewMessage(websocket.TypePong, nil)
		if err != nil {
			return err
		}
		return h.manager.SendToClient(client.ID, pong)

	default:
		reply, err := websocket.NewMessage(websocket.TypeError, &websocket.ErrorPayload{
			Message: "unsupported message type: " + string(msg.Type),
		})
		if err != nil {
			return err
		}
		return h.manager.SendToClient(client.ID, reply)
	}
}
