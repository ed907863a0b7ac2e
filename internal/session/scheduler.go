package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pad-sync-server/internal/domain"
)

func (s *Session) armCreateLocked(e *entry) {
	if s.cfg.Mode != ModeAuto {
		return
	}
	e.stopTimer()
	e.timer = s.clock.AfterFunc(s.cfg.createDelay(), func() { s.flushCreate(e) })
}

// armUpdateLocked restarts the debounce window, so a burst of edits ends in
// a single remote update.
func (s *Session) armUpdateLocked(e *entry) {
	if s.cfg.Mode != ModeAuto {
		return
	}
	e.stopTimer()
	e.timer = s.clock.AfterFunc(s.cfg.UpdateDelay, func() { s.flushUpdate(e) })
}

func (s *Session) scheduleSweepLocked() {
	epoch := s.epoch
	s.sweepTimer = s.clock.AfterFunc(s.cfg.SweepInterval, func() { s.sweep(epoch) })
}

func (s *Session) flushCreate(e *entry) {
	s.mu.Lock()
	if e.dropped || e.phase != phasePending || e.item.ServerBacked() || s.state != StateLoaded {
		s.mu.Unlock()
		return
	}
	c := s.claimCreateLocked(e)
	key, ctx := s.room.Key, s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	created, err := s.store.AddItem(ctx, key, c.draft)

	var report SyncReport
	s.mu.Lock()
	s.finishCreateLocked(c, created, err, &report)
	s.mu.Unlock()
	s.deliver()
}

func (s *Session) flushUpdate(e *entry) {
	s.mu.Lock()
	if e.dropped || e.phase != phasePending || !e.item.ServerBacked() || s.state != StateLoaded {
		s.mu.Unlock()
		return
	}
	if e.patch.IsEmpty() {
		e.timer = nil
		e.phase = phaseSynced
		delete(s.pending, e.item.ID)
		s.mu.Unlock()
		return
	}
	c := s.claimUpdateLocked(e)
	key, ctx := s.room.Key, s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	updated, err := s.store.UpdateItem(ctx, key, c.id, c.patch.Normalize())

	var report SyncReport
	s.mu.Lock()
	s.finishUpdateLocked(c, updated, err, &report)
	s.mu.Unlock()
	s.deliver()
}

// sweep batches every idle local item into one create and retries failed
// updates, then reschedules itself for the same loaded room.
func (s *Session) sweep(epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch || s.state != StateLoaded {
		s.mu.Unlock()
		return
	}

	if !s.syncing {
		creates, updates := s.claimLocked(false)
		if len(creates)+len(updates) > 0 {
			s.syncing = true
			key, ctx := s.room.Key, s.ctx
			s.wg.Add(1)
			s.mu.Unlock()

			report := s.runPass(ctx, key, creates, updates)
			if len(report.Failed) > 0 {
				log.Printf("[Session] sweep synced %d items, %d failed", report.Synced, len(report.Failed))
			}

			s.mu.Lock()
			if s.epoch == epoch {
				s.syncing = false
			}
			s.wg.Done()
		}
	}

	if s.epoch == epoch && s.state == StateLoaded {
		s.scheduleSweepLocked()
	}
	s.mu.Unlock()
	s.deliver()
}

// SyncNow pushes every pending change immediately: local items in one batch
// create and modified server items one update each, both in snapshot order.
// A call made while another pass is running returns ErrSyncInProgress and
// does nothing.
func (s *Session) SyncNow(ctx context.Context) (SyncReport, error) {
	s.mu.Lock()
	if s.state != StateLoaded {
		s.mu.Unlock()
		return SyncReport{}, ErrNoActiveRoom
	}
	if s.syncing {
		s.mu.Unlock()
		return SyncReport{}, ErrSyncInProgress
	}

	creates, updates := s.claimLocked(true)
	s.syncing = true
	epoch := s.epoch
	key, sessionCtx := s.room.Key, s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sessionCtx, cancel)
	defer stop()

	report := s.runPass(ctx, key, creates, updates)

	s.mu.Lock()
	if s.epoch == epoch {
		s.syncing = false
	}
	s.mu.Unlock()
	s.deliver()

	return report, nil
}

// claimLocked takes pending entries out of the pending set in snapshot
// order. Failed server items are always retried; other modified server
// items only when allUpdates is set.
func (s *Session) claimLocked(allUpdates bool) (creates, updates []claim) {
	for _, e := range s.entries {
		if _, ok := s.pending[e.item.Key()]; !ok || e.phase == phaseInFlight {
			continue
		}

		if !e.item.ServerBacked() {
			creates = append(creates, s.claimCreateLocked(e))
			continue
		}

		if e.phase != phaseFailed && !allUpdates {
			continue
		}
		if e.patch.IsEmpty() {
			e.stopTimer()
			e.phase = phaseSynced
			delete(s.pending, e.item.ID)
			continue
		}
		updates = append(updates, s.claimUpdateLocked(e))
	}
	return creates, updates
}

func (s *Session) claimCreateLocked(e *entry) claim {
	e.stopTimer()
	e.phase = phaseInFlight
	delete(s.pending, e.item.LocalID)
	return claim{
		e:     e,
		id:    e.item.LocalID,
		key:   s.room.Key,
		ctx:   s.ctx,
		draft: e.item.Draft().Normalize(),
	}
}

func (s *Session) claimUpdateLocked(e *entry) claim {
	e.stopTimer()
	c := claim{e: e, id: e.item.ID, key: s.room.Key, ctx: s.ctx, patch: e.patch}
	e.patch = nil
	e.phase = phaseInFlight
	delete(s.pending, e.item.ID)
	return c
}

func (s *Session) runPass(ctx context.Context, key string, creates, updates []claim) SyncReport {
	var report SyncReport

	if len(creates) > 0 {
		drafts := make([]*domain.CreateItemRequest, len(creates))
		for i, c := range creates {
			drafts[i] = c.draft
		}

		created, err := s.store.AddItemsBatch(ctx, key, drafts)
		if err == nil && len(created) != len(drafts) {
			err = fmt.Errorf("batch create returned %d items for %d drafts", len(created), len(drafts))
		}

		s.mu.Lock()
		for i, c := range creates {
			var item *domain.Item
			if err == nil {
				item = created[i]
			}
			s.finishCreateLocked(c, item, err, &report)
		}
		s.mu.Unlock()
	}

	for _, c := range updates {
		updated, err := s.store.UpdateItem(ctx, key, c.id, c.patch.Normalize())

		s.mu.Lock()
		s.finishUpdateLocked(c, updated, err, &report)
		s.mu.Unlock()
	}

	return report
}

func (s *Session) finishCreateLocked(c claim, created *domain.Item, err error, report *SyncReport) {
	e := c.e

	if e.dropped {
		if err == nil && e.deleteOnCreate {
			s.removeRemoteLocked(c, created.ID)
		}
		return
	}

	if err != nil {
		s.failLocked(e, OpCreate, err, report)
		return
	}

	delete(s.cache, e.item.LocalID)
	e.rebase(created)
	s.settleLocked(e, report)
}

func (s *Session) finishUpdateLocked(c claim, updated *domain.Item, err error, report *SyncReport) {
	e := c.e

	if err != nil {
		// edits made during the request win over the failed ones
		failed := mergePatch(nil, c.patch)
		failed.Merge(e.patch)
		e.patch = failed
		if e.dropped {
			e.phase = phaseFailed
			return
		}
		s.failLocked(e, OpUpdate, err, report)
		return
	}

	e.rebase(updated)
	if e.dropped {
		e.phase = phaseSynced
		if !e.patch.IsEmpty() {
			e.phase = phasePending
		}
		return
	}
	s.settleLocked(e, report)
}

// settleLocked finishes a successful request. Edits that arrived while it
// was in flight are queued as an update.
func (s *Session) settleLocked(e *entry, report *SyncReport) {
	report.Synced++

	if e.patch.IsEmpty() {
		e.patch = nil
		e.phase = phaseSynced
	} else {
		e.phase = phasePending
		s.pending[e.item.ID] = e
		s.armUpdateLocked(e)
	}

	s.emitLocked(Event{Type: EventSynced, ItemID: e.item.ID, LocalID: e.item.LocalID})
}

func (s *Session) failLocked(e *entry, op Op, err error, report *SyncReport) {
	e.phase = phaseFailed
	e.err = err

	key := e.item.Key()
	// a missing room or item will not appear by retrying, and a rejected
	// request will be rejected again
	if !errors.Is(err, domain.ErrNotFound) && !domain.IsValidation(err) {
		s.pending[key] = e
	}

	failure := &SyncFailure{ItemID: key, Op: op, Err: err}
	report.Failed = append(report.Failed, failure)
	log.Printf("[Session] %v", failure)

	s.emitLocked(Event{Type: EventSyncFailed, ItemID: key, LocalID: e.item.LocalID, Err: failure})
}
