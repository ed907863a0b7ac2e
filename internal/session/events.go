package session

import "fmt"

type EventType string

const (
	EventSynced       EventType = "synced"
	EventSyncFailed   EventType = "sync-failed"
	EventRemoveFailed EventType = "remove-failed"
	EventClearFailed  EventType = "clear-failed"
)

// Event is delivered to listeners registered with OnEvent. ItemID is the
// authoritative id of the item at the time of the event; LocalID is set for
// items that were created by this session.
type Event struct {
	Type    EventType
	ItemID  string
	LocalID string
	Err     error
}

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

// SyncFailure records a remote call that did not succeed. The item stays in
// the pending set and is retried unless the store reported it as not found
// or rejected the request as invalid.
type SyncFailure struct {
	ItemID string
	Op     Op
	Err    error
}

func (f *SyncFailure) Error() string {
	if f.ItemID == "" {
		return fmt.Sprintf("%s failed: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", f.Op, f.ItemID, f.Err)
}

func (f *SyncFailure) Unwrap() error {
	return f.Err
}

// SyncReport summarizes one sync pass.
type SyncReport struct {
	Synced int
	Failed []*SyncFailure
}
