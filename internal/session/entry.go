package session

import (
	"context"

	"pad-sync-server/internal/domain"
)

type phase int

const (
	// phasePending: waiting for a timer, the sweep or SyncNow.
	phasePending phase = iota
	phaseInFlight
	phaseSynced
	phaseFailed
)

// entry is the session's record of one snapshot item.
type entry struct {
	item  *domain.Item
	phase phase
	timer Timer
	// patch holds edits not yet confirmed by the store: debounced edits of
	// server-backed items, or edits made while a create was in flight.
	patch *domain.UpdateItemRequest
	err   error
	// dropped is set once the entry leaves the snapshot.
	dropped bool
	// deleteOnCreate asks for a remote delete when an in-flight create lands.
	deleteOnCreate bool
}

func (e *entry) status() domain.SyncStatus {
	switch e.phase {
	case phaseSynced:
		return domain.SyncStatusSynced
	case phaseFailed:
		return domain.SyncStatusFailed
	case phaseInFlight:
		return domain.SyncStatusSyncing
	}
	if e.item.ServerBacked() {
		return domain.SyncStatusSyncing
	}
	return domain.SyncStatusLocal
}

func (e *entry) view() *domain.Item {
	c := e.item.Clone()
	c.SyncStatus = e.status()
	return c
}

func (e *entry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// rebase replaces the item with the store's copy, keeps the local id and
// reapplies any edits made since the request was sent.
func (e *entry) rebase(remote *domain.Item) {
	rebased := remote.Clone()
	rebased.LocalID = e.item.LocalID
	rebased.SyncStatus = ""
	if !e.patch.IsEmpty() {
		rebased.Apply(e.patch)
	}
	e.item = rebased
	e.err = nil
}

func mergePatch(dst, src *domain.UpdateItemRequest) *domain.UpdateItemRequest {
	if dst == nil {
		dst = &domain.UpdateItemRequest{}
	}
	dst.Merge(src)
	return dst
}

// claim is an entry taken out of the pending set for one remote call. key
// and ctx are those of the room the call was made against.
type claim struct {
	e     *entry
	id    string
	key   string
	ctx   context.Context
	draft *domain.CreateItemRequest
	patch *domain.UpdateItemRequest
}
