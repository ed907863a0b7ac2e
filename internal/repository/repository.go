package repository

import (
	"context"
	"errors"
	"time"

	"pad-sync-server/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
	ErrItemNotFound = errors.New("item not found")
)

// RoomRepository stores room metadata. Items live in ItemRepository and are
// never returned from here.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, key string) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, key string) error
	ListExpiredKeys(ctx context.Context, now time.Time) ([]string, error)
	ListActiveKeys(ctx context.Context, now time.Time) ([]string, error)
}

type ItemRepository interface {
	Create(ctx context.Context, roomKey string, item *domain.Item) error
	CreateBatch(ctx context.Context, roomKey string, items []*domain.Item) error
	Get(ctx context.Context, roomKey, id string) (*domain.Item, error)
	ListByRoom(ctx context.Context, roomKey string) ([]*domain.Item, error)
	Update(ctx context.Context, roomKey string, item *domain.Item) error
	Delete(ctx context.Context, roomKey, id string) error
	DeleteByRoom(ctx context.Context, roomKey string) (int, error)
	CountByRooms(ctx context.Context, roomKeys []string) (int, error)
}

// Timestamps are persisted as unix nanoseconds so that items created in one
// batch keep their order when sorted by creation time.
func encodeTime(t time.Time) int64 {
	return t.UnixNano()
}

func decodeTime(v int64) time.Time {
	return time.Unix(0, v).UTC()
}
