package domain

import (
	"testing"
	"time"
)

func TestCreateItemRequest_Normalize(t *testing.T) {
	req := &CreateItemRequest{
		Type:       ItemTypeText,
		Content:    "hello",
		Position:   Position{X: 10.6, Y: -3.2},
		Dimensions: Dimensions{Width: 299.5, Height: 99.4},
	}

	got := req.Normalize()

	if got.Position != (Position{X: 11, Y: 0}) {
		t.Errorf("Normalize() position = %+v, want {11 0}", got.Position)
	}
	if got.Dimensions != (Dimensions{Width: 300, Height: 99}) {
		t.Errorf("Normalize() dimensions = %+v, want {300 99}", got.Dimensions)
	}
	if req.Position.X != 10.6 {
		t.Error("Normalize() modified the original request")
	}
}

func TestUpdateItemRequest_Merge(t *testing.T) {
	first := "first"
	last := "last"
	lang := "go"

	patch := &UpdateItemRequest{Content: &first}
	patch.Merge(&UpdateItemRequest{Language: &lang})
	patch.Merge(&UpdateItemRequest{Content: &last, Position: &Position{X: 4, Y: 5}})

	if patch.Content == nil || *patch.Content != "last" {
		t.Errorf("Merge() content = %v, want last", patch.Content)
	}
	if patch.Language == nil || *patch.Language != "go" {
		t.Errorf("Merge() language = %v, want go", patch.Language)
	}
	if patch.Position == nil || patch.Position.X != 4 {
		t.Errorf("Merge() position = %v, want {4 5}", patch.Position)
	}

	last = "mutated"
	if *patch.Content != "last" {
		t.Error("Merge() aliased the source pointer")
	}
}

func TestUpdateItemRequest_IsEmpty(t *testing.T) {
	var nilPatch *UpdateItemRequest
	if !nilPatch.IsEmpty() {
		t.Error("nil patch should be empty")
	}
	if !(&UpdateItemRequest{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	content := "x"
	if (&UpdateItemRequest{Content: &content}).IsEmpty() {
		t.Error("patch with content should not be empty")
	}
}

func TestItem_ApplyAndMatches(t *testing.T) {
	item := &Item{ID: "srv-1", LocalID: "loc-1", Type: ItemTypeText, Content: "a"}
	code := ItemTypeCode
	content := "fmt.Println()"

	item.Apply(&UpdateItemRequest{Type: &code, Content: &content})

	if item.Type != ItemTypeCode || item.Content != content {
		t.Errorf("Apply() = %+v", item)
	}
	if !item.Matches("srv-1") || !item.Matches("loc-1") {
		t.Error("Matches() should accept both identifiers")
	}
	if item.Matches("") || item.Matches("other") {
		t.Error("Matches() accepted an unrelated id")
	}
	if item.Key() != "srv-1" {
		t.Errorf("Key() = %q, want srv-1", item.Key())
	}
}

func TestRoom_IsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	room := NewRoom("ABCDEFGHIJ", "ABCDEFGHIJ", "", now)

	if room.Theme != ThemeDark {
		t.Errorf("NewRoom() theme = %q, want dark", room.Theme)
	}
	if room.IsExpired(now.Add(23 * time.Hour)) {
		t.Error("room expired before its lifetime")
	}
	if !room.IsExpired(now.Add(RoomLifetime)) {
		t.Error("room still readable at expires_at")
	}
	if got := room.TimeRemaining(now.Add(time.Hour)); got != 23*time.Hour {
		t.Errorf("TimeRemaining() = %v, want 23h", got)
	}
}
