package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager is the hub for every room feed. Clients are indexed by the room
// they subscribed to; broadcasts never cross rooms.
type Manager struct {
	clients        map[string]*Client
	roomIndex      map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxConnPerRoom int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	messageHandler MessageHandler
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

func NewManager(maxConnPerRoom int, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		roomIndex:      make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxConnPerRoom: maxConnPerRoom,
		maxMessageSize: 64 * 1024,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
	}
}

// SetMaxMessageSize limits inbound frames for clients registered afterwards.
func (m *Manager) SetMaxMessageSize(n int64) {
	if n > 0 {
		m.maxMessageSize = n
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

// Run serves the register, unregister and inbound message channels until ctx
// is cancelled, then disconnects every client.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)

		case <-ctx.Done():
			m.closeAll()
			return nil
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.roomIndex[client.RoomKey] == nil {
		m.roomIndex[client.RoomKey] = make(map[string]bool)
	}

	if m.maxConnPerRoom > 0 && len(m.roomIndex[client.RoomKey]) >= m.maxConnPerRoom {
		log.Printf("[WebSocket] max connections reached for room %s", client.RoomKey)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.roomIndex[client.RoomKey][client.ID] = true

	log.Printf("[WebSocket] client registered: %s (room: %s)", client.ID, client.RoomKey)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	m.removeLocked(client)
}

func (m *Manager) removeLocked(client *Client) {
	if _, ok := m.clients[client.ID]; !ok {
		return
	}

	delete(m.clients, client.ID)
	delete(m.roomIndex[client.RoomKey], client.ID)
	if len(m.roomIndex[client.RoomKey]) == 0 {
		delete(m.roomIndex, client.RoomKey)
	}

	close(client.Send)
	log.Printf("[WebSocket] client unregistered: %s", client.ID)
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for _, client := range m.clients {
		m.removeLocked(client)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		log.Printf("[WebSocket] error unmarshaling message: %v", err)
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			log.Printf("[WebSocket] error handling message: %v", err)
		}
	}
}

// BroadcastToRoom delivers message to every client of roomKey. Clients whose
// send buffer is full are disconnected.
func (m *Manager) BroadcastToRoom(roomKey string, message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var slow []*Client

	m.clientsMutex.RLock()
	for clientID := range m.roomIndex[roomKey] {
		client := m.clients[clientID]
		select {
		case client.Send <- messageBytes:
		default:
			slow = append(slow, client)
		}
	}
	m.clientsMutex.RUnlock()

	if len(slow) > 0 {
		m.clientsMutex.Lock()
		for _, client := range slow {
			log.Printf("[WebSocket] client %s send buffer full, closing connection", client.ID)
			m.removeLocked(client)
		}
		m.clientsMutex.Unlock()
	}

	return nil
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		log.Printf("[WebSocket] client %s send buffer full", clientID)
	}

	return nil
}

func (m *Manager) RoomConnections(roomKey string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.roomIndex[roomKey])
}
