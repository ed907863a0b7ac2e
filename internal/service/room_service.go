package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pad-sync-server/internal/domain"
	"pad-sync-server/internal/repository"
	"pad-sync-server/internal/websocket"
	"pad-sync-server/pkg/roomkey"

	"github.com/google/uuid"
)

const maxKeyAttempts = 5

// Broadcaster fans room events out to live subscribers.
type Broadcaster interface {
	BroadcastToRoom(roomKey string, message *websocket.Message) error
}

// RoomService is the authoritative item store. Every operation validates the
// room key first and treats expired rooms as missing.
type RoomService struct {
	roomRepo repository.RoomRepository
	itemRepo repository.ItemRepository
	hub      Broadcaster
	now      func() time.Time
}

func NewRoomService(roomRepo repository.RoomRepository, itemRepo repository.ItemRepository, hub Broadcaster) *RoomService {
	return &RoomService{
		roomRepo: roomRepo,
		itemRepo: itemRepo,
		hub:      hub,
		now:      time.Now,
	}
}

// CreateRoom creates a room with the requested custom key or a generated one.
func (s *RoomService) CreateRoom(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error) {
	if req == nil {
		req = &domain.CreateRoomRequest{}
	}
	if req.CustomKey != "" {
		req.CustomKey = roomkey.Normalize(req.CustomKey)
	}
	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	if req.CustomKey != "" {
		room := domain.NewRoom(uuid.New().String(), req.CustomKey, req.Theme, now)
		if err := s.roomRepo.Create(ctx, room); err != nil {
			return nil, mapRoomError(req.CustomKey, err)
		}
		return room, nil
	}

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := roomkey.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room key: %w", err)
		}

		room := domain.NewRoom(uuid.New().String(), key, req.Theme, now)
		err = s.roomRepo.Create(ctx, room)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, repository.ErrRoomExists) {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}
	}

	return nil, ErrKeyGeneration
}

// GetRoom returns the room with its items in creation order.
func (s *RoomService) GetRoom(ctx context.Context, key string) (*domain.Room, error) {
	room, err := s.activeRoom(ctx, key)
	if err != nil {
		return nil, err
	}

	items, err := s.itemRepo.ListByRoom(ctx, room.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	room.Items = items

	return room, nil
}

func (s *RoomService) UpdateRoom(ctx context.Context, key string, req *domain.UpdateRoomRequest) (*domain.Room, error) {
	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	room, err := s.activeRoom(ctx, key)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Theme != nil {
		room.Theme = *req.Theme
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, mapRoomError(room.Key, err)
	}

	s.broadcast(room.Key, websocket.TypeRoomUpdated, &websocket.RoomPayload{
		RoomKey: room.Key,
		Name:    room.Name,
		Theme:   room.Theme,
	})

	return s.GetRoom(ctx, room.Key)
}

func (s *RoomService) DeleteRoom(ctx context.Context, key string) error {
	room, err := s.activeRoom(ctx, key)
	if err != nil {
		return err
	}

	if err := s.deleteRoom(ctx, room.Key); err != nil {
		return err
	}

	s.broadcast(room.Key, websocket.TypeRoomDeleted, &websocket.RoomPayload{RoomKey: room.Key})
	return nil
}

func (s *RoomService) ListItems(ctx context.Context, key string) ([]*domain.Item, error) {
	room, err := s.GetRoom(ctx, key)
	if err != nil {
		return nil, err
	}
	return room.Items, nil
}

// AddItem stores one item with a fresh server id.
func (s *RoomService) AddItem(ctx context.Context, key string, draft *domain.CreateItemRequest) (*domain.Item, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, &domain.ValidationError{Message: "item is required"}
	}
	if err := domain.Validate(draft); err != nil {
		return nil, err
	}

	room, err := s.activeRoom(ctx, key)
	if err != nil {
		return nil, err
	}

	item := newItem(draft, s.now().UTC())
	if err := s.itemRepo.Create(ctx, room.Key, item); err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}

	s.broadcast(room.Key, websocket.TypeItemCreated, &websocket.ItemsPayload{
		RoomKey: room.Key,
		Items:   []*domain.Item{item},
	})

	return item, nil
}

// AddItemsBatch stores drafts in one write. The result is 1:1 and in the
// same order as drafts.
func (s *RoomService) AddItemsBatch(ctx context.Context, key string, drafts []*domain.CreateItemRequest) ([]*domain.Item, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	if err := domain.Validate(&domain.BatchCreateItemsRequest{Items: drafts}); err != nil {
		return nil, err
	}

	room, err := s.activeRoom(ctx, key)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	items := make([]*domain.Item, len(drafts))
	for i, draft := range drafts {
		// distinct timestamps keep listing order equal to batch order
		items[i] = newItem(draft, now.Add(time.Duration(i)))
	}

	if err := s.itemRepo.CreateBatch(ctx, room.Key, items); err != nil {
		return nil, fmt.Errorf("failed to add items: %w", err)
	}

	s.broadcast(room.Key, websocket.TypeItemCreated, &websocket.ItemsPayload{
		RoomKey: room.Key,
		Items:   items,
	})

	return items, nil
}

// UpdateItem applies the non-nil fields of patch. An empty patch returns the
// stored item unchanged.
func (s *RoomService) UpdateItem(ctx context.Context, key, id string, patch *domain.UpdateItemRequest) (*domain.Item, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	if patch != nil {
		if err := domain.Validate(patch); err != nil {
			return nil, err
		}
	}

	room, err := s.activeRoom(ctx, key)
	if err != nil {
		return nil, err
	}

	item, err := s.itemRepo.Get(ctx, room.Key, id)
	if err != nil {
		return nil, mapItemError(id, err)
	}
	if patch.IsEmpty() {
		return item, nil
	}

	item.Apply(patch.Normalize())
	if err := s.itemRepo.Update(ctx, room.Key, item); err != nil {
		return nil, mapItemError(id, err)
	}

	s.broadcast(room.Key, websocket.TypeItemUpdated, &websocket.ItemsPayload{
		RoomKey: room.Key,
		Items:   []*domain.Item{item},
	})

	return item, nil
}

func (s *RoomService) RemoveItem(ctx context.Context, key, id string) error {
	room, err := s.activeRoom(ctx, key)
	if err != nil {
		return err
	}

	if err := s.itemRepo.Delete(ctx, room.Key, id); err != nil {
		return mapItemError(id, err)
	}

	s.broadcast(room.Key, websocket.TypeItemDeleted, &websocket.ItemDeletedPayload{
		RoomKey: room.Key,
		ItemID:  id,
	})

	return nil
}

// ClearRoom removes every item of the room. Clearing an empty room succeeds.
func (s *RoomService) ClearRoom(ctx context.Context, key string) error {
	room, err := s.activeRoom(ctx, key)
	if err != nil {
		return err
	}

	removed, err := s.itemRepo.DeleteByRoom(ctx, room.Key)
	if err != nil {
		return fmt.Errorf("failed to clear room: %w", err)
	}

	s.broadcast(room.Key, websocket.TypeRoomCleared, &websocket.RoomClearedPayload{
		RoomKey: room.Key,
		Removed: removed,
	})

	return nil
}

// CleanupExpiredRooms deletes every expired room together with its items and
// returns how many rooms were removed.
func (s *RoomService) CleanupExpiredRooms(ctx context.Context) (int, error) {
	keys, err := s.roomRepo.ListExpiredKeys(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired rooms: %w", err)
	}

	cleaned := 0
	for _, key := range keys {
		if err := s.deleteRoom(ctx, key); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return cleaned, err
		}
		cleaned++
	}

	return cleaned, nil
}

func (s *RoomService) GetStats(ctx context.Context) (*domain.Stats, error) {
	keys, err := s.roomRepo.ListActiveKeys(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	total, err := s.itemRepo.CountByRooms(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}

	return &domain.Stats{TotalRooms: len(keys), TotalItems: total}, nil
}

func (s *RoomService) activeRoom(ctx context.Context, key string) (*domain.Room, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}

	room, err := s.roomRepo.Get(ctx, key)
	if err != nil {
		return nil, mapRoomError(key, err)
	}
	if room.IsExpired(s.now()) {
		return nil, domain.RoomNotFound(key)
	}

	return room, nil
}

func (s *RoomService) deleteRoom(ctx context.Context, key string) error {
	if _, err := s.itemRepo.DeleteByRoom(ctx, key); err != nil {
		return fmt.Errorf("failed to delete items: %w", err)
	}
	if err := s.roomRepo.Delete(ctx, key); err != nil {
		return mapRoomError(key, err)
	}
	return nil
}

func (s *RoomService) broadcast(roomKey string, msgType websocket.MessageType, payload interface{}) {
	if s.hub == nil {
		return
	}

	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		log.Printf("[WebSocket] failed to build %s message: %v", msgType, err)
		return
	}

	if err := s.hub.BroadcastToRoom(roomKey, msg); err != nil {
		log.Printf("[WebSocket] failed to broadcast %s to room %s: %v", msgType, roomKey, err)
	}
}

func newItem(draft *domain.CreateItemRequest, createdAt time.Time) *domain.Item {
	d := draft.Normalize()
	return &domain.Item{
		ID:         uuid.New().String(),
		Type:       d.Type,
		Content:    d.Content,
		Filename:   d.Filename,
		Language:   d.Language,
		Size:       d.Size,
		Position:   d.Position,
		Dimensions: d.Dimensions,
		CreatedAt:  createdAt,
		SyncStatus: domain.SyncStatusSynced,
	}
}
