// Package session keeps an optimistic local copy of one room and reconciles
// it with a remote Store in the background. Mutations apply to the snapshot
// immediately and never wait on the network.
package session

import (
	"context"
	"errors"
	"log"
	"slices"
	"sync"

	"pad-sync-server/internal/domain"
	"pad-sync-server/pkg/roomkey"

	"github.com/google/uuid"
)

var (
	ErrNoActiveRoom   = errors.New("no active room")
	ErrSyncInProgress = errors.New("sync already in progress")
)

type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
	StateError    State = "error"
)

// Snapshot is a point-in-time copy of the session. Room.Items lists every
// item in display order, each annotated with its sync status.
type Snapshot struct {
	State State
	Err   error
	Room  *domain.Room
	// Pending counts items waiting for a sync attempt.
	Pending int
	// Unsynced counts items that have no server id yet.
	Unsynced int
}

type Session struct {
	store Store
	cfg   Config
	clock Clock

	mu      sync.Mutex
	state   State
	loadErr error
	room    *domain.Room
	entries []*entry
	// cache indexes entries without a server id by local id.
	cache map[string]*entry
	// pending indexes entries awaiting a sync attempt by authoritative id.
	pending map[string]*entry

	// epoch changes whenever the loaded room is torn down; clears counts
	// Clear calls. Both let late callbacks detect that their view is stale.
	epoch  uint64
	clears uint64

	syncing    bool
	sweepTimer Timer
	ctx        context.Context
	cancel     context.CancelFunc

	listeners []func(Event)
	outbox    []Event
	wg        sync.WaitGroup
}

func New(store Store, cfg Config) *Session {
	return newSession(store, cfg, realClock{})
}

func newSession(store Store, cfg Config, clock Clock) *Session {
	return &Session{
		store:   store,
		cfg:     cfg.withDefaults(),
		clock:   clock,
		state:   StateUnloaded,
		cache:   make(map[string]*entry),
		pending: make(map[string]*entry),
	}
}

func (s *Session) Config() Config {
	return s.cfg
}

// OnEvent registers fn for sync notifications. Listeners run outside the
// session lock and may call back into the session.
func (s *Session) OnEvent(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load fetches the room and makes it the active room, discarding whatever was
// loaded before. A malformed key fails without contacting the store.
func (s *Session) Load(ctx context.Context, key string) error {
	key = roomkey.Normalize(key)

	s.mu.Lock()
	s.teardownLocked()
	if err := domain.ValidateRoomKey(key); err != nil {
		s.state = StateError
		s.loadErr = err
		s.mu.Unlock()
		return err
	}
	s.state = StateLoading
	epoch := s.epoch
	s.mu.Unlock()

	room, err := s.store.GetRoom(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return ErrNoActiveRoom
	}
	if err != nil {
		log.Printf("[Session] failed to load room %s: %v", key, err)
		s.state = StateError
		s.loadErr = err
		return err
	}

	meta := *room
	meta.Items = nil
	s.room = &meta
	s.entries = make([]*entry, 0, len(room.Items))
	for _, item := range room.Items {
		c := item.Clone()
		c.SyncStatus = ""
		s.entries = append(s.entries, &entry{item: c, phase: phaseSynced})
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.state = StateLoaded
	s.loadErr = nil

	if s.cfg.Mode == ModeAuto {
		s.scheduleSweepLocked()
	}

	log.Printf("[Session] loaded room %s with %d items (mode: %s)", room.Key, len(s.entries), s.cfg.Mode)
	return nil
}

// Close cancels every timer and in-flight request and discards local state.
// Changes that were never confirmed are lost.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.state = StateUnloaded
	s.loadErr = nil
}

// Wait blocks until background remote calls have returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) teardownLocked() {
	if s.sweepTimer != nil {
		s.sweepTimer.Stop()
		s.sweepTimer = nil
	}
	for _, e := range s.entries {
		e.stopTimer()
		e.dropped = true
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.epoch++
	s.room = nil
	s.entries = nil
	s.cache = make(map[string]*entry)
	s.pending = make(map[string]*entry)
	s.syncing = false
	s.outbox = nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:    s.state,
		Err:      s.loadErr,
		Pending:  len(s.pending),
		Unsynced: len(s.cache),
	}
	if s.room != nil {
		room := *s.room
		room.Items = s.itemsLocked()
		snap.Room = &room
	}
	return snap
}

// Items returns the ordered items of the active room.
func (s *Session) Items() []*domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

func (s *Session) itemsLocked() []*domain.Item {
	items := make([]*domain.Item, len(s.entries))
	for i, e := range s.entries {
		items[i] = e.view()
	}
	return items
}

// Add places a new item in the snapshot under a fresh local id. The remote
// create happens later.
func (s *Session) Add(draft *domain.CreateItemRequest) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return nil, ErrNoActiveRoom
	}
	if draft == nil {
		return nil, &domain.ValidationError{Message: "item is required"}
	}
	if err := domain.Validate(draft); err != nil {
		return nil, err
	}

	item := &domain.Item{
		LocalID:    uuid.New().String(),
		Type:       draft.Type,
		Content:    draft.Content,
		Filename:   draft.Filename,
		Language:   draft.Language,
		Size:       draft.Size,
		Position:   draft.Position,
		Dimensions: draft.Dimensions,
		CreatedAt:  s.clock.Now().UTC(),
	}
	e := &entry{item: item, phase: phasePending}

	s.entries = append(s.entries, e)
	s.cache[item.LocalID] = e
	s.pending[item.LocalID] = e
	s.armCreateLocked(e)

	return e.view(), nil
}

// Update applies patch to the item with the given local or server id.
func (s *Session) Update(id string, patch *domain.UpdateItemRequest) (*domain.Item, error) {
	if patch != nil {
		if err := domain.Validate(patch); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return nil, ErrNoActiveRoom
	}
	_, e := s.findLocked(id)
	if e == nil {
		return nil, domain.ItemNotFound(id)
	}
	if patch.IsEmpty() {
		return e.view(), nil
	}

	e.item.Apply(patch)

	switch {
	case e.phase == phaseInFlight:
		// pushed once the outstanding request returns
		e.patch = mergePatch(e.patch, patch)
	case e.item.ServerBacked():
		e.patch = mergePatch(e.patch, patch)
		e.phase = phasePending
		s.pending[e.item.ID] = e
		s.armUpdateLocked(e)
	}

	return e.view(), nil
}

// Remove drops the item from the snapshot. Items that never reached the
// store are forgotten without any remote call.
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return ErrNoActiveRoom
	}
	idx, e := s.findLocked(id)
	if e == nil {
		return domain.ItemNotFound(id)
	}

	e.stopTimer()
	e.dropped = true
	s.entries = slices.Delete(s.entries, idx, idx+1)
	delete(s.pending, e.item.Key())

	if !e.item.ServerBacked() {
		delete(s.cache, e.item.LocalID)
		if e.phase == phaseInFlight {
			e.deleteOnCreate = true
		}
		return nil
	}

	epoch, clears := s.epoch, s.clears
	key, ctx, itemID := s.room.Key, s.ctx, e.item.ID

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.store.RemoveItem(ctx, key, itemID)
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			return
		}

		log.Printf("[Session] failed to remove item %s: %v", itemID, err)

		s.mu.Lock()
		if s.epoch == epoch && s.clears == clears {
			s.restoreLocked(e, idx)
		}
		s.emitLocked(Event{
			Type:    EventRemoveFailed,
			ItemID:  itemID,
			LocalID: e.item.LocalID,
			Err:     &SyncFailure{ItemID: itemID, Op: OpRemove, Err: err},
		})
		s.mu.Unlock()
		s.deliver()
	}()

	return nil
}

// restoreLocked puts a removed entry back at its former index.
func (s *Session) restoreLocked(e *entry, idx int) {
	e.dropped = false
	idx = min(idx, len(s.entries))
	s.entries = slices.Insert(s.entries, idx, e)

	if e.phase != phaseInFlight && !e.patch.IsEmpty() {
		s.pending[e.item.ID] = e
		if e.phase == phasePending {
			s.armUpdateLocked(e)
		}
	}
}

// Clear empties the room locally and asks the store to do the same. If the
// store refuses, server-backed items come back; local ones stay dropped.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return ErrNoActiveRoom
	}

	var cleared []*entry
	for _, e := range s.entries {
		e.stopTimer()
		e.dropped = true
		if e.item.ServerBacked() {
			cleared = append(cleared, e)
		} else if e.phase == phaseInFlight {
			e.deleteOnCreate = true
		}
	}
	s.entries = nil
	s.cache = make(map[string]*entry)
	s.pending = make(map[string]*entry)
	s.clears++

	epoch, clears := s.epoch, s.clears
	key, ctx := s.room.Key, s.ctx

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.store.ClearRoom(ctx, key)
		if err == nil {
			return
		}

		log.Printf("[Session] failed to clear room %s: %v", key, err)

		s.mu.Lock()
		// a missing room holds no items, so the empty snapshot is accurate
		if s.epoch == epoch && s.clears == clears && !errors.Is(err, domain.ErrNotFound) {
			for i, e := range cleared {
				s.restoreLocked(e, i)
			}
		}
		s.emitLocked(Event{
			Type: EventClearFailed,
			Err:  &SyncFailure{Op: OpClear, Err: err},
		})
		s.mu.Unlock()
		s.deliver()
	}()

	return nil
}

func (s *Session) findLocked(id string) (int, *entry) {
	for i, e := range s.entries {
		if e.item.Matches(id) {
			return i, e
		}
	}
	return -1, nil
}

func (s *Session) emitLocked(ev Event) {
	if len(s.listeners) == 0 {
		return
	}
	s.outbox = append(s.outbox, ev)
}

// deliver hands queued events to listeners. It must be called without the
// lock held.
func (s *Session) deliver() {
	s.mu.Lock()
	events := s.outbox
	s.outbox = nil
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

// removeRemoteLocked deletes an item whose create landed after the user had
// already removed it. The delete targets the room the create was sent to.
func (s *Session) removeRemoteLocked(c claim, id string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.store.RemoveItem(c.ctx, c.key, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Printf("[Session] failed to remove item %s from room %s after create: %v", id, c.key, err)
		}
	}()
}
