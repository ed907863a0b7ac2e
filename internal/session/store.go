package session

import (
	"context"

	"pad-sync-server/internal/domain"
)

// Store is the remote item store a session reconciles against. Batch creates
// must return exactly one item per draft, in draft order.
type Store interface {
	GetRoom(ctx context.Context, key string) (*domain.Room, error)
	AddItem(ctx context.Context, key string, draft *domain.CreateItemRequest) (*domain.Item, error)
	AddItemsBatch(ctx context.Context, key string, drafts []*domain.CreateItemRequest) ([]*domain.Item, error)
	UpdateItem(ctx context.Context, key, id string, patch *domain.UpdateItemRequest) (*domain.Item, error)
	RemoveItem(ctx context.Context, key, id string) error
	ClearRoom(ctx context.Context, key string) error
}
