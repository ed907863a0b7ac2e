package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"pad-sync-server/internal/domain"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward, running due callbacks in order on the calling
// goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.when
		c.mu.Unlock()

		next.f()
	}
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type updateCall struct {
	id    string
	patch *domain.UpdateItemRequest
}

// memStore is an in-memory Store that records every call.
type memStore struct {
	mu      sync.Mutex
	rooms   map[string]*domain.Room
	nextID  int
	calls   map[string]int
	batches [][]*domain.CreateItemRequest
	updates []updateCall
	fail    map[string]error

	// when blockOp is set, that operation signals entered and waits on
	// release before doing its work
	blockOp string
	entered chan struct{}
	release chan struct{}
	// ignoreCancel keeps a blocked call waiting for release even after its
	// context is cancelled, like a request already on the wire
	ignoreCancel bool
}

func newMemStore() *memStore {
	return &memStore{
		rooms: make(map[string]*domain.Room),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func (m *memStore) addRoom(key string, items ...*domain.Item) *domain.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	room := domain.NewRoom("room-"+key, key, domain.ThemeDark, time.Now().UTC())
	for _, item := range items {
		c := item.Clone()
		c.SyncStatus = domain.SyncStatusSynced
		room.Items = append(room.Items, c)
	}
	m.rooms[key] = room
	return room
}

func (m *memStore) block(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockOp = op
	m.entered = make(chan struct{}, 1)
	m.release = make(chan struct{})
}

func (m *memStore) setFail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

func (m *memStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memStore) roomItems(key string) []*domain.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[key]
	if !ok {
		return nil
	}
	items := make([]*domain.Item, len(room.Items))
	for i, item := range room.Items {
		items[i] = item.Clone()
	}
	return items
}

// begin records the call and returns the room, or an error to return.
func (m *memStore) begin(ctx context.Context, op, key string) (*domain.Room, error) {
	m.mu.Lock()
	m.calls[op]++
	blocked := m.blockOp == op
	entered, release, ignoreCancel := m.entered, m.release, m.ignoreCancel
	m.mu.Unlock()

	if blocked {
		entered <- struct{}{}
		if ignoreCancel {
			<-release
		} else {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[op]; err != nil {
		return nil, err
	}
	room, ok := m.rooms[key]
	if !ok || room.IsExpired(time.Now()) {
		return nil, domain.RoomNotFound(key)
	}
	return room, nil
}

func (m *memStore) newItemLocked(draft *domain.CreateItemRequest) *domain.Item {
	m.nextID++
	d := draft.Normalize()
	return &domain.Item{
		ID:         fmt.Sprintf("srv-%d", m.nextID),
		Type:       d.Type,
		Content:    d.Content,
		Filename:   d.Filename,
		Language:   d.Language,
		Size:       d.Size,
		Position:   d.Position,
		Dimensions: d.Dimensions,
		CreatedAt:  time.Now().UTC(),
		SyncStatus: domain.SyncStatusSynced,
	}
}

func (m *memStore) GetRoom(ctx context.Context, key string) (*domain.Room, error) {
	room, err := m.begin(ctx, "get", key)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *room
	c.Items = make([]*domain.Item, len(room.Items))
	for i, item := range room.Items {
		c.Items[i] = item.Clone()
	}
	return &c, nil
}

func (m *memStore) AddItem(ctx context.Context, key string, draft *domain.CreateItemRequest) (*domain.Item, error) {
	room, err := m.begin(ctx, "add", key)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item := m.newItemLocked(draft)
	room.Items = append(room.Items, item)
	return item.Clone(), nil
}

func (m *memStore) AddItemsBatch(ctx context.Context, key string, drafts []*domain.CreateItemRequest) ([]*domain.Item, error) {
	room, err := m.begin(ctx, "batch", key)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, drafts)
	out := make([]*domain.Item, len(drafts))
	for i, draft := range drafts {
		item := m.newItemLocked(draft)
		room.Items = append(room.Items, item)
		out[i] = item.Clone()
	}
	return out, nil
}

func (m *memStore) UpdateItem(ctx context.Context, key, id string, patch *domain.UpdateItemRequest) (*domain.Item, error) {
	room, err := m.begin(ctx, "update", key)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, updateCall{id: id, patch: patch})
	for _, item := range room.Items {
		if item.ID == id {
			item.Apply(patch.Normalize())
			return item.Clone(), nil
		}
	}
	return nil, domain.ItemNotFound(id)
}

func (m *memStore) RemoveItem(ctx context.Context, key, id string) error {
	room, err := m.begin(ctx, "remove", key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range room.Items {
		if item.ID == id {
			room.Items = append(room.Items[:i], room.Items[i+1:]...)
			return nil
		}
	}
	return domain.ItemNotFound(id)
}

func (m *memStore) ClearRoom(ctx context.Context, key string) error {
	room, err := m.begin(ctx, "clear", key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	room.Items = nil
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

const roomKey = "ROOM000001"

func fixedConfig(mode Mode) Config {
	return Config{
		Mode:           mode,
		CreateDelayMin: 12 * time.Second,
		CreateDelayMax: 12 * time.Second,
		UpdateDelay:    2 * time.Second,
		SweepInterval:  20 * time.Second,
	}
}

func setup(t *testing.T, cfg Config, items ...*domain.Item) (*Session, *memStore, *fakeClock, *eventLog) {
	t.Helper()
	store := newMemStore()
	store.addRoom(roomKey, items...)
	clock := newFakeClock()
	s := newSession(store, cfg, clock)
	events := &eventLog{}
	s.OnEvent(events.record)

	if err := s.Load(context.Background(), roomKey); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		s.Wait()
	})
	return s, store, clock, events
}

func textDraft(content string) *domain.CreateItemRequest {
	return &domain.CreateItemRequest{Type: domain.ItemTypeText, Content: content}
}

func serverItem(id, content string) *domain.Item {
	return &domain.Item{ID: id, Type: domain.ItemTypeText, Content: content}
}

func contents(items []*domain.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Content
	}
	return out
}

func sortedOps(m *memStore) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ops []string
	for op, n := range m.calls {
		if n > 0 && op != "get" {
			ops = append(ops, op)
		}
	}
	sort.Strings(ops)
	return ops
}
