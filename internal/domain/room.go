package domain

import "time"

// RoomLifetime is how long a room stays readable after creation.
const RoomLifetime = 24 * time.Hour

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

type Room struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name,omitempty"`
	Theme     Theme     `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Items     []*Item   `json:"items"`
}

func NewRoom(id, key string, theme Theme, now time.Time) *Room {
	if theme == "" {
		theme = ThemeDark
	}
	return &Room{
		ID:        id,
		Key:       key,
		Theme:     theme,
		CreatedAt: now,
		ExpiresAt: now.Add(RoomLifetime),
		Items:     []*Item{},
	}
}

// IsExpired reports whether the room can no longer be read at now.
func (r *Room) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// TimeRemaining is zero once the room has expired.
func (r *Room) TimeRemaining(now time.Time) time.Duration {
	if r.IsExpired(now) {
		return 0
	}
	return r.ExpiresAt.Sub(now)
}

type CreateRoomRequest struct {
	Theme     Theme  `json:"theme,omitempty" validate:"omitempty,oneof=dark light"`
	CustomKey string `json:"custom_key,omitempty" validate:"omitempty,roomkey"`
}

type UpdateRoomRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Theme *Theme  `json:"theme,omitempty" validate:"omitempty,oneof=dark light"`
}

type Stats struct {
	TotalRooms int `json:"total_rooms"`
	TotalItems int `json:"total_items"`
}

type CleanupResponse struct {
	Message      string `json:"message"`
	CleanedCount int    `json:"cleaned_count"`
}
