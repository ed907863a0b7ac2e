package repository

import (
	"context"
	"fmt"
	"sort"

	"pad-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type CouchDBItemRepository struct {
	db *kivik.DB
}

type itemDoc struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	DocType   string `json:"doc_type"`
	ItemID    string `json:"item_id"`
	RoomKey   string `json:"room_key"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Filename  string `json:"filename,omitempty"`
	Language  string `json:"language,omitempty"`
	Size      int64  `json:"size,omitempty"`
	PositionX int64  `json:"position_x"`
	PositionY int64  `json:"position_y"`
	Width     int64  `json:"width"`
	Height    int64  `json:"height"`
	CreatedAt int64  `json:"created_at"`
}

func NewItemRepository(client *kivik.Client, dbName string) *CouchDBItemRepository {
	return &CouchDBItemRepository{
		db: client.DB(dbName),
	}
}

func itemDocID(roomKey, id string) string {
	return fmt.Sprintf("item:%s:%s", roomKey, id)
}

func (r *CouchDBItemRepository) Create(ctx context.Context, roomKey string, item *domain.Item) error {
	doc := itemToDoc(roomKey, item)

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

func (r *CouchDBItemRepository) CreateBatch(ctx context.Context, roomKey string, items []*domain.Item) error {
	docs := make([]interface{}, len(items))
	for i, item := range items {
		docs[i] = itemToDoc(roomKey, item)
	}

	results, err := r.db.BulkDocs(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to create items: %w", err)
	}

	for _, res := range results {
		if res.Error != nil {
			return fmt.Errorf("failed to create item %s: %w", res.ID, res.Error)
		}
	}

	return nil
}

func (r *CouchDBItemRepository) Get(ctx context.Context, roomKey, id string) (*domain.Item, error) {
	doc, err := r.getDoc(ctx, roomKey, id)
	if err != nil {
		return nil, err
	}

	return docToItem(doc), nil
}

func (r *CouchDBItemRepository) ListByRoom(ctx context.Context, roomKey string) ([]*domain.Item, error) {
	docs, err := r.findByRooms(ctx, []string{roomKey})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt < docs[j].CreatedAt
	})

	items := make([]*domain.Item, 0, len(docs))
	for _, doc := range docs {
		items = append(items, docToItem(doc))
	}

	return items, nil
}

func (r *CouchDBItemRepository) Update(ctx context.Context, roomKey string, item *domain.Item) error {
	existing, err := r.getDoc(ctx, roomKey, item.ID)
	if err != nil {
		return err
	}

	doc := itemToDoc(roomKey, item)
	doc.Rev = existing.Rev
	doc.CreatedAt = existing.CreatedAt

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	return nil
}

func (r *CouchDBItemRepository) Delete(ctx context.Context, roomKey, id string) error {
	doc, err := r.getDoc(ctx, roomKey, id)
	if err != nil {
		return err
	}

	if _, err := r.db.Delete(ctx, doc.ID, doc.Rev); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return nil
}

func (r *CouchDBItemRepository) DeleteByRoom(ctx context.Context, roomKey string) (int, error) {
	docs, err := r.findByRooms(ctx, []string{roomKey})
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	tombstones := make([]interface{}, len(docs))
	for i, doc := range docs {
		tombstones[i] = map[string]interface{}{
			"_id":      doc.ID,
			"_rev":     doc.Rev,
			"_deleted": true,
		}
	}

	results, err := r.db.BulkDocs(ctx, tombstones)
	if err != nil {
		return 0, fmt.Errorf("failed to clear items: %w", err)
	}

	deleted := 0
	for _, res := range results {
		if res.Error == nil {
			deleted++
		}
	}

	return deleted, nil
}

func (r *CouchDBItemRepository) CountByRooms(ctx context.Context, roomKeys []string) (int, error) {
	if len(roomKeys) == 0 {
		return 0, nil
	}

	docs, err := r.findByRooms(ctx, roomKeys)
	if err != nil {
		return 0, err
	}

	return len(docs), nil
}

func (r *CouchDBItemRepository) findByRooms(ctx context.Context, roomKeys []string) ([]*itemDoc, error) {
	selector := map[string]interface{}{
		"doc_type": "item",
		"room_key": map[string]interface{}{"$in": roomKeys},
	}

	var docs []*itemDoc
	err := findAll(ctx, selector, nil, func(ctx context.Context, query map[string]interface{}) (int, string, error) {
		return scanPage(ctx, r.db, query, func(rows *kivik.ResultSet) error {
			var doc itemDoc
			if err := rows.ScanDoc(&doc); err != nil {
				return fmt.Errorf("failed to scan item: %w", err)
			}
			docs = append(docs, &doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}

	return docs, nil
}

func (r *CouchDBItemRepository) getDoc(ctx context.Context, roomKey, id string) (*itemDoc, error) {
	row := r.db.Get(ctx, itemDocID(roomKey, id))

	var doc itemDoc
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &doc, nil
}

func itemToDoc(roomKey string, item *domain.Item) *itemDoc {
	return &itemDoc{
		ID:        itemDocID(roomKey, item.ID),
		DocType:   "item",
		ItemID:    item.ID,
		RoomKey:   roomKey,
		Type:      string(item.Type),
		Content:   item.Content,
		Filename:  item.Filename,
		Language:  item.Language,
		Size:      item.Size,
		PositionX: int64(item.Position.X),
		PositionY: int64(item.Position.Y),
		Width:     int64(item.Dimensions.Width),
		Height:    int64(item.Dimensions.Height),
		CreatedAt: encodeTime(item.CreatedAt),
	}
}

func docToItem(doc *itemDoc) *domain.Item {
	return &domain.Item{
		ID:         doc.ItemID,
		Type:       domain.ItemType(doc.Type),
		Content:    doc.Content,
		Filename:   doc.Filename,
		Language:   doc.Language,
		Size:       doc.Size,
		Position:   domain.Position{X: float64(doc.PositionX), Y: float64(doc.PositionY)},
		Dimensions: domain.Dimensions{Width: float64(doc.Width), Height: float64(doc.Height)},
		CreatedAt:  decodeTime(doc.CreatedAt),
		SyncStatus: domain.SyncStatusSynced,
	}
}
