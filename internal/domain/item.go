package domain

import (
	"math"
	"time"
)

type ItemType string

const (
	ItemTypeText  ItemType = "text"
	ItemTypeCode  ItemType = "code"
	ItemTypeImage ItemType = "image"
	ItemTypeFile  ItemType = "file"
)

type SyncStatus string

const (
	SyncStatusLocal   SyncStatus = "local-unsynced"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "sync-failed"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rounded snaps the position to non-negative whole pixels.
func (p Position) Rounded() Position {
	return Position{X: roundPixel(p.X), Y: roundPixel(p.Y)}
}

type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rounded snaps the dimensions to non-negative whole pixels.
func (d Dimensions) Rounded() Dimensions {
	return Dimensions{Width: roundPixel(d.Width), Height: roundPixel(d.Height)}
}

func roundPixel(v float64) float64 {
	r := math.Round(v)
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	return r
}

// Item is one piece of content on a room canvas. ID is the identifier
// assigned by the store; LocalID is only set on items created by a client
// session and is kept after the item has been confirmed.
type Item struct {
	ID         string     `json:"id,omitempty"`
	LocalID    string     `json:"local_id,omitempty"`
	Type       ItemType   `json:"type"`
	Content    string     `json:"content"`
	Filename   string     `json:"filename,omitempty"`
	Language   string     `json:"language,omitempty"`
	Size       int64      `json:"size,omitempty"`
	Position   Position   `json:"position"`
	Dimensions Dimensions `json:"dimensions"`
	CreatedAt  time.Time  `json:"created_at"`
	SyncStatus SyncStatus `json:"sync_status,omitempty"`
}

// Key returns the authoritative identifier of the item.
func (i *Item) Key() string {
	if i.ID != "" {
		return i.ID
	}
	return i.LocalID
}

func (i *Item) ServerBacked() bool {
	return i.ID != ""
}

// Matches reports whether id refers to this item by either identifier.
func (i *Item) Matches(id string) bool {
	return id != "" && (i.ID == id || i.LocalID == id)
}

// Draft returns the user supplied fields of the item as a create request.
func (i *Item) Draft() *CreateItemRequest {
	return &CreateItemRequest{
		Type:       i.Type,
		Content:    i.Content,
		Filename:   i.Filename,
		Language:   i.Language,
		Size:       i.Size,
		Position:   i.Position,
		Dimensions: i.Dimensions,
	}
}

// Apply copies every non-nil field of req onto the item.
func (i *Item) Apply(req *UpdateItemRequest) {
	if req == nil {
		return
	}
	if req.Type != nil {
		i.Type = *req.Type
	}
	if req.Content != nil {
		i.Content = *req.Content
	}
	if req.Filename != nil {
		i.Filename = *req.Filename
	}
	if req.Language != nil {
		i.Language = *req.Language
	}
	if req.Size != nil {
		i.Size = *req.Size
	}
	if req.Position != nil {
		i.Position = *req.Position
	}
	if req.Dimensions != nil {
		i.Dimensions = *req.Dimensions
	}
}

func (i *Item) Clone() *Item {
	c := *i
	return &c
}

type CreateItemRequest struct {
	Type       ItemType   `json:"type" validate:"required,oneof=text code image file"`
	Content    string     `json:"content" validate:"required"`
	Filename   string     `json:"filename,omitempty" validate:"max=255"`
	Language   string     `json:"language,omitempty" validate:"max=64"`
	Size       int64      `json:"size,omitempty" validate:"gte=0"`
	Position   Position   `json:"position"`
	Dimensions Dimensions `json:"dimensions"`
}

// Normalize returns a copy with position and dimensions rounded for storage.
func (r *CreateItemRequest) Normalize() *CreateItemRequest {
	c := *r
	c.Position = r.Position.Rounded()
	c.Dimensions = r.Dimensions.Rounded()
	return &c
}

type UpdateItemRequest struct {
	Type       *ItemType   `json:"type,omitempty" validate:"omitempty,oneof=text code image file"`
	Content    *string     `json:"content,omitempty"`
	Filename   *string     `json:"filename,omitempty" validate:"omitempty,max=255"`
	Language   *string     `json:"language,omitempty" validate:"omitempty,max=64"`
	Size       *int64      `json:"size,omitempty" validate:"omitempty,gte=0"`
	Position   *Position   `json:"position,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

func (r *UpdateItemRequest) IsEmpty() bool {
	return r == nil || (r.Type == nil && r.Content == nil && r.Filename == nil &&
		r.Language == nil && r.Size == nil && r.Position == nil && r.Dimensions == nil)
}

// Merge overlays the non-nil fields of other onto r. Later edits win.
func (r *UpdateItemRequest) Merge(other *UpdateItemRequest) {
	if other == nil {
		return
	}
	if other.Type != nil {
		v := *other.Type
		r.Type = &v
	}
	if other.Content != nil {
		v := *other.Content
		r.Content = &v
	}
	if other.Filename != nil {
		v := *other.Filename
		r.Filename = &v
	}
	if other.Language != nil {
		v := *other.Language
		r.Language = &v
	}
	if other.Size != nil {
		v := *other.Size
		r.Size = &v
	}
	if other.Position != nil {
		v := *other.Position
		r.Position = &v
	}
	if other.Dimensions != nil {
		v := *other.Dimensions
		r.Dimensions = &v
	}
}

// Normalize returns a copy with position and dimensions rounded for storage.
func (r *UpdateItemRequest) Normalize() *UpdateItemRequest {
	c := &UpdateItemRequest{}
	c.Merge(r)
	if c.Position != nil {
		p := c.Position.Rounded()
		c.Position = &p
	}
	if c.Dimensions != nil {
		d := c.Dimensions.Rounded()
		c.Dimensions = &d
	}
	return c
}

type BatchCreateItemsRequest struct {
	Items []*CreateItemRequest `json:"items" validate:"required,min=1,dive,required"`
}

type BatchCreateItemsResponse struct {
	Items []*Item `json:"items"`
	Count int     `json:"count"`
}
