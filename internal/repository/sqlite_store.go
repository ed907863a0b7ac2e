package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pad-sync-server/internal/domain"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	inMemory := path == ":memory:"
	if !inMemory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	// modernc.org/sqlite registers itself as "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			key TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			theme TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_expires ON rooms(expires_at);`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			room_key TEXT NOT NULL REFERENCES rooms(key) ON DELETE CASCADE,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL DEFAULT 0,
			position_x INTEGER NOT NULL DEFAULT 0,
			position_y INTEGER NOT NULL DEFAULT 0,
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_room ON items(room_key, created_at);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return nil
}

type SQLiteRoomRepository struct {
	db *sql.DB
}

func NewSQLiteRoomRepository(db *sql.DB) *SQLiteRoomRepository {
	return &SQLiteRoomRepository{db: db}
}

func (r *SQLiteRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (key, id, name, theme, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(key) DO NOTHING`,
		room.Key, room.ID, room.Name, string(room.Theme),
		encodeTime(room.CreatedAt), encodeTime(room.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	if n == 0 {
		return ErrRoomExists
	}

	return nil
}

func (r *SQLiteRoomRepository) Get(ctx context.Context, key string) (*domain.Room, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT key, id, name, theme, created_at, expires_at FROM rooms WHERE key = ?`, key)

	var (
		room               domain.Room
		theme              string
		createdAt, expires int64
	)
	if err := row.Scan(&room.Key, &room.ID, &room.Name, &theme, &createdAt, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	room.Theme = domain.Theme(theme)
	room.CreatedAt = decodeTime(createdAt)
	room.ExpiresAt = decodeTime(expires)
	room.Items = []*domain.Item{}

	return &room, nil
}

func (r *SQLiteRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET name = ?, theme = ?, expires_at = ? WHERE key = ?`,
		room.Name, string(room.Theme), encodeTime(room.ExpiresAt), room.Key,
	)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	return requireAffected(res, ErrRoomNotFound)
}

func (r *SQLiteRoomRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return requireAffected(res, ErrRoomNotFound)
}

func (r *SQLiteRoomRepository) ListExpiredKeys(ctx context.Context, now time.Time) ([]string, error) {
	return r.queryKeys(ctx, `SELECT key FROM rooms WHERE expires_at <= ? ORDER BY expires_at`, encodeTime(now))
}

func (r *SQLiteRoomRepository) ListActiveKeys(ctx context.Context, now time.Time) ([]string, error) {
	return r.queryKeys(ctx, `SELECT key FROM rooms WHERE expires_at > ? ORDER BY created_at`, encodeTime(now))
}

func (r *SQLiteRoomRepository) queryKeys(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

type SQLiteItemRepository struct {
	db *sql.DB
}

func NewSQLiteItemRepository(db *sql.DB) *SQLiteItemRepository {
	return &SQLiteItemRepository{db: db}
}

const insertItemSQL = `INSERT INTO items
	(id, room_key, type, content, filename, language, size, position_x, position_y, width, height, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func itemArgs(roomKey string, item *domain.Item) []any {
	return []any{
		item.ID, roomKey, string(item.Type), item.Content, item.Filename, item.Language, item.Size,
		int64(item.Position.X), int64(item.Position.Y),
		int64(item.Dimensions.Width), int64(item.Dimensions.Height),
		encodeTime(item.CreatedAt),
	}
}

func (r *SQLiteItemRepository) Create(ctx context.Context, roomKey string, item *domain.Item) error {
	if _, err := r.db.ExecContext(ctx, insertItemSQL, itemArgs(roomKey, item)...); err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *SQLiteItemRepository) CreateBatch(ctx context.Context, roomKey string, items []*domain.Item) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertItemSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, itemArgs(roomKey, item)...); err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

const selectItemSQL = `SELECT id, type, content, filename, language, size,
	position_x, position_y, width, height, created_at FROM items`

func scanItem(scan func(dest ...any) error) (*domain.Item, error) {
	var (
		item                domain.Item
		itemType            string
		x, y, w, h, created int64
	)
	if err := scan(&item.ID, &itemType, &item.Content, &item.Filename, &item.Language, &item.Size,
		&x, &y, &w, &h, &created); err != nil {
		return nil, err
	}
	item.Type = domain.ItemType(itemType)
	item.Position = domain.Position{X: float64(x), Y: float64(y)}
	item.Dimensions = domain.Dimensions{Width: float64(w), Height: float64(h)}
	item.CreatedAt = decodeTime(created)
	item.SyncStatus = domain.SyncStatusSynced
	return &item, nil
}

func (r *SQLiteItemRepository) Get(ctx context.Context, roomKey, id string) (*domain.Item, error) {
	row := r.db.QueryRowContext(ctx, selectItemSQL+` WHERE room_key = ? AND id = ?`, roomKey, id)
	item, err := scanItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (r *SQLiteItemRepository) ListByRoom(ctx context.Context, roomKey string) ([]*domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, selectItemSQL+` WHERE room_key = ? ORDER BY created_at, rowid`, roomKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []*domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteItemRepository) Update(ctx context.Context, roomKey string, item *domain.Item) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET type = ?, content = ?, filename = ?, language = ?, size = ?,
		 position_x = ?, position_y = ?, width = ?, height = ?
		 WHERE room_key = ? AND id = ?`,
		string(item.Type), item.Content, item.Filename, item.Language, item.Size,
		int64(item.Position.X), int64(item.Position.Y),
		int64(item.Dimensions.Width), int64(item.Dimensions.Height),
		roomKey, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return requireAffected(res, ErrItemNotFound)
}

func (r *SQLiteItemRepository) Delete(ctx context.Context, roomKey, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE room_key = ? AND id = ?`, roomKey, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return requireAffected(res, ErrItemNotFound)
}

func (r *SQLiteItemRepository) DeleteByRoom(ctx context.Context, roomKey string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE room_key = ?`, roomKey)
	if err != nil {
		return 0, fmt.Errorf("failed to clear items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear items: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteItemRepository) CountByRooms(ctx context.Context, roomKeys []string) (int, error) {
	if len(roomKeys) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(roomKeys)), ",")
	args := make([]any, len(roomKeys))
	for i, k := range roomKeys {
		args[i] = k
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE room_key IN (`+placeholders+`)`, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
