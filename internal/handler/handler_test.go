package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pad-sync-server/internal/config"
	"pad-sync-server/internal/domain"
	"pad-sync-server/internal/repository"
	"pad-sync-server/internal/service"
	"pad-sync-server/internal/websocket"
	"pad-sync-server/pkg/jwt"
	"pad-sync-server/pkg/response"

	ws "github.com/gorilla/websocket"
)

const testSecret = "test-admin-secret"

type testServer struct {
	*httptest.Server
	rooms *service.RoomService
	hub   *websocket.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := repository.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hub := websocket.NewManager(10, time.Second, time.Minute, 30*time.Second)
	go hub.Run(ctx)

	rooms := service.NewRoomService(
		repository.NewSQLiteRoomRepository(db),
		repository.NewSQLiteItemRepository(db),
		hub,
	)

	cfg := &config.Config{
		Admin: config.AdminConfig{Secret: testSecret},
		CORS: config.CORSConfig{
			AllowedOrigins: "*",
			AllowedMethods: "GET,POST,PUT,DELETE,OPTIONS",
			AllowedHeaders: "Content-Type,Authorization",
		},
		WebSocket: config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}

	router := NewRouter(cfg, Dependencies{
		Rooms:   rooms,
		Cleanup: service.NewCleanupService(rooms, time.Hour),
		Hub:     hub,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, rooms: rooms, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, header ...string) *http.Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
		reader = http.NoBody
	case io.Reader:
		reader = b
	default:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
		reader = &buf
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	data, _, err := response.Decode[T](resp.StatusCode, resp.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return data
}

func (s *testServer) createRoom(t *testing.T) *domain.Room {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/v1/rooms", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d", resp.StatusCode)
	}
	return decode[*domain.Room](t, resp)
}

func TestCreateRoom(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantKey    string
	}{
		{"generated key", nil, http.StatusCreated, ""},
		{"custom key lower-case", map[string]string{"custom_key": "myroom0001"}, http.StatusCreated, "MYROOM0001"},
		{"custom key taken", map[string]string{"custom_key": "MYROOM0001"}, http.StatusConflict, ""},
		{"custom key malformed", map[string]string{"custom_key": "short"}, http.StatusBadRequest, ""},
		{"bad theme", map[string]string{"theme": "neon"}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, http.MethodPost, "/api/v1/rooms", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}
			room := decode[*domain.Room](t, resp)
			if len(room.Key) != 10 {
				t.Errorf("key = %q, want 10 characters", room.Key)
			}
			if tt.wantKey != "" && room.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", room.Key, tt.wantKey)
			}
			if room.Theme != domain.ThemeDark {
				t.Errorf("theme = %q, want dark", room.Theme)
			}
		})
	}
}

func TestGetRoomNotFound(t *testing.T) {
	srv := newTestServer(t)

	if resp := srv.do(t, http.MethodGet, "/api/v1/rooms/ZZZZZZZZZZ", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing room status = %d, want 404", resp.StatusCode)
	}
	if resp := srv.do(t, http.MethodGet, "/api/v1/rooms/bad-key", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed key status = %d, want 400", resp.StatusCode)
	}
}

func TestItemLifecycle(t *testing.T) {
	srv := newTestServer(t)
	room := srv.createRoom(t)
	base := "/api/v1/rooms/" + room.Key

	resp := srv.do(t, http.MethodPost, base+"/items", map[string]interface{}{
		"type":     "text",
		"content":  "hello",
		"position": map[string]float64{"x": 10.6, "y": -3},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add item status = %d", resp.StatusCode)
	}
	item := decode[*domain.Item](t, resp)
	if item.ID == "" {
		t.Fatal("created item has no id")
	}
	if item.Position.X != 11 || item.Position.Y != 0 {
		t.Errorf("position = %+v, want rounded {11 0}", item.Position)
	}

	resp = srv.do(t, http.MethodPut, base+"/items/"+item.ID, map[string]string{"content": "edited"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	if got := decode[*domain.Item](t, resp); got.Content != "edited" || got.Type != domain.ItemTypeText {
		t.Errorf("updated item = %+v", got)
	}

	resp = srv.do(t, http.MethodGet, base, nil)
	got := decode[*domain.Room](t, resp)
	if len(got.Items) != 1 || got.Items[0].Content != "edited" {
		t.Errorf("room items = %+v", got.Items)
	}

	if resp := srv.do(t, http.MethodDelete, base+"/items/"+item.ID, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if resp := srv.do(t, http.MethodDelete, base+"/items/"+item.ID, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
	if resp := srv.do(t, http.MethodPut, base+"/items/missing", map[string]string{"content": "x"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("update missing status = %d, want 404", resp.StatusCode)
	}
}

func TestAddItemValidation(t *testing.T) {
	srv := newTestServer(t)
	room := srv.createRoom(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty body", nil},
		{"missing content", map[string]string{"type": "text"}},
		{"unknown type", map[string]string{"type": "video", "content": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, http.MethodPost, "/api/v1/rooms/"+room.Key+"/items", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}

	resp := srv.do(t, http.MethodPost, "/api/v1/rooms/"+room.Key+"/items", strings.NewReader("{"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("garbage body status = %d, want 400", resp.StatusCode)
	}
}

func TestBatchCreate(t *testing.T) {
	srv := newTestServer(t)
	room := srv.createRoom(t)
	path := "/api/v1/rooms/" + room.Key + "/items/batch"

	if resp := srv.do(t, http.MethodPost, path, map[string]interface{}{"items": []interface{}{}}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty batch status = %d, want 400", resp.StatusCode)
	}

	resp := srv.do(t, http.MethodPost, path, map[string]interface{}{
		"items": []map[string]string{
			{"type": "text", "content": "A"},
			{"type": "code", "content": "B", "language": "go"},
			{"type": "text", "content": "C"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("batch status = %d", resp.StatusCode)
	}
	batch := decode[*domain.BatchCreateItemsResponse](t, resp)
	if batch.Count != 3 {
		t.Fatalf("count = %d, want 3", batch.Count)
	}
	for i, want := range []string{"A", "B", "C"} {
		if batch.Items[i].Content != want {
			t.Errorf("items[%d] = %q, want %q", i, batch.Items[i].Content, want)
		}
	}

	items := decode[[]*domain.Item](t, srv.do(t, http.MethodGet, "/api/v1/rooms/"+room.Key+"/items", nil))
	if len(items) != 3 || items[0].Content != "A" || items[2].Content != "C" {
		t.Errorf("listed items out of order: %+v", items)
	}
}

func TestClearRoomTwice(t *testing.T) {
	srv := newTestServer(t)
	room := srv.createRoom(t)
	srv.do(t, http.MethodPost, "/api/v1/rooms/"+room.Key+"/items", map[string]string{"type": "text", "content": "x"})

	for i := 0; i < 2; i++ {
		if resp := srv.do(t, http.MethodPost, "/api/v1/rooms/"+room.Key+"/clear", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("clear #%d status = %d", i+1, resp.StatusCode)
		}
	}

	items := decode[[]*domain.Item](t, srv.do(t, http.MethodGet, "/api/v1/rooms/"+room.Key+"/items", nil))
	if len(items) != 0 {
		t.Errorf("items after clear = %d, want 0", len(items))
	}
}

func TestUpdateAndDeleteRoom(t *testing.T) {
	srv := newTestServer(t)
	room := srv.createRoom(t)
	path := "/api/v1/rooms/" + room.Key

	resp := srv.do(t, http.MethodPut, path, map[string]string{"name": "standup", "theme": "light"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	updated := decode[*domain.Room](t, resp)
	if updated.Name != "standup" || updated.Theme != domain.ThemeLight {
		t.Errorf("updated room = %+v", updated)
	}

	if resp := srv.do(t, http.MethodDelete, path, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if resp := srv.do(t, http.MethodGet, path, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestStatsAndCleanup(t *testing.T) {
	srv := newTestServer(t)
	room := srv.createRoom(t)
	srv.do(t, http.MethodPost, "/api/v1/rooms/"+room.Key+"/items", map[string]string{"type": "text", "content": "x"})

	stats := decode[*domain.Stats](t, srv.do(t, http.MethodGet, "/api/v1/stats", nil))
	if stats.TotalRooms != 1 || stats.TotalItems != 1 {
		t.Errorf("stats = %+v, want 1 room 1 item", stats)
	}

	if resp := srv.do(t, http.MethodPost, "/api/v1/cleanup", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("cleanup without token status = %d, want 401", resp.StatusCode)
	}

	token, err := jwt.GenerateAdminToken("ops", time.Minute, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	resp := srv.do(t, http.MethodPost, "/api/v1/cleanup", nil, "Authorization", "Bearer "+token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cleanup status = %d", resp.StatusCode)
	}
	if got := decode[*domain.CleanupResponse](t, resp); got.CleanedCount != 0 {
		t.Errorf("cleaned = %d, want 0 for a fresh room", got.CleanedCount)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	if resp := srv.do(t, http.MethodGet, "/health", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	if resp := srv.do(t, http.MethodGet, "/nope", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", resp.StatusCode)
	}
}

func TestWebSocketFeed(t *testing.T) {
	srv := newTestServer(t)
	room := srv.createRoom(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?room=" + strings.ToLower(room.Key)
	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.RoomConnections(room.Key) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	srv.do(t, http.MethodPost, "/api/v1/rooms/"+room.Key+"/items", map[string]string{"type": "text", "content": "live"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != websocket.TypeItemCreated {
		t.Fatalf("message type = %q, want %q", msg.Type, websocket.TypeItemCreated)
	}
	var payload websocket.ItemsPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.RoomKey != room.Key || len(payload.Items) != 1 || payload.Items[0].Content != "live" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestWebSocketRefusesUnknownRoom(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?room=ZZZZZZZZZZ"
	_, resp, err := ws.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("Dial() expected error for unknown room")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %v, want 404", resp)
	}
}
