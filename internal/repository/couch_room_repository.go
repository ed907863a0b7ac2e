package repository

import (
	"context"
	"fmt"
	"time"

	"pad-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type CouchDBRoomRepository struct {
	db *kivik.DB
}

type roomDoc struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	DocType   string `json:"doc_type"`
	RoomID    string `json:"room_id"`
	Key       string `json:"key"`
	Name      string `json:"name,omitempty"`
	Theme     string `json:"theme"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

func NewRoomRepository(client *kivik.Client, dbName string) *CouchDBRoomRepository {
	return &CouchDBRoomRepository{
		db: client.DB(dbName),
	}
}

func roomDocID(key string) string {
	return fmt.Sprintf("room:%s", key)
}

func (r *CouchDBRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	doc := roomToDoc(room)

	_, err := r.db.Put(ctx, doc.ID, doc)
	if err != nil {
		if kivik.HTTPStatus(err) == 409 {
			return ErrRoomExists
		}
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

func (r *CouchDBRoomRepository) Get(ctx context.Context, key string) (*domain.Room, error) {
	doc, err := r.getDoc(ctx, key)
	if err != nil {
		return nil, err
	}

	return docToRoom(doc), nil
}

func (r *CouchDBRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	existing, err := r.getDoc(ctx, room.Key)
	if err != nil {
		return err
	}

	doc := roomToDoc(room)
	doc.Rev = existing.Rev

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	return nil
}

func (r *CouchDBRoomRepository) Delete(ctx context.Context, key string) error {
	doc, err := r.getDoc(ctx, key)
	if err != nil {
		return err
	}

	if _, err := r.db.Delete(ctx, doc.ID, doc.Rev); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

func (r *CouchDBRoomRepository) ListExpiredKeys(ctx context.Context, now time.Time) ([]string, error) {
	return r.findKeys(ctx, map[string]interface{}{"$lte": encodeTime(now)})
}

func (r *CouchDBRoomRepository) ListActiveKeys(ctx context.Context, now time.Time) ([]string, error) {
	return r.findKeys(ctx, map[string]interface{}{"$gt": encodeTime(now)})
}

func (r *CouchDBRoomRepository) findKeys(ctx context.Context, expiresAt map[string]interface{}) ([]string, error) {
	selector := map[string]interface{}{
		"doc_type":   "room",
		"expires_at": expiresAt,
	}

	var keys []string
	err := findAll(ctx, selector, []string{"key"}, func(ctx context.Context, query map[string]interface{}) (int, string, error) {
		return scanPage(ctx, r.db, query, func(rows *kivik.ResultSet) error {
			var doc struct {
				Key string `json:"key"`
			}
			if err := rows.ScanDoc(&doc); err != nil {
				return fmt.Errorf("failed to scan room: %w", err)
			}
			keys = append(keys, doc.Key)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}

	return keys, nil
}

func (r *CouchDBRoomRepository) getDoc(ctx context.Context, key string) (*roomDoc, error) {
	row := r.db.Get(ctx, roomDocID(key))

	var doc roomDoc
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return &doc, nil
}

func roomToDoc(room *domain.Room) *roomDoc {
	return &roomDoc{
		ID:        roomDocID(room.Key),
		DocType:   "room",
		RoomID:    room.ID,
		Key:       room.Key,
		Name:      room.Name,
		Theme:     string(room.Theme),
		CreatedAt: encodeTime(room.CreatedAt),
		ExpiresAt: encodeTime(room.ExpiresAt),
	}
}

func docToRoom(doc *roomDoc) *domain.Room {
	return &domain.Room{
		ID:        doc.RoomID,
		Key:       doc.Key,
		Name:      doc.Name,
		Theme:     domain.Theme(doc.Theme),
		CreatedAt: decodeTime(doc.CreatedAt),
		ExpiresAt: decodeTime(doc.ExpiresAt),
		Items:     []*domain.Item{},
	}
}
