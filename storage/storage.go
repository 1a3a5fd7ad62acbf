// Package storage defines the durable key/value area shared by every
// session manager attached to the same origin, and the change events it
// broadcasts to them.
package storage

import "errors"

// Keys persisted by the session manager.
const (
	KeyAuthTokens  = "auth_tokens"
	KeySessionInfo = "session_info"
	KeyDeviceID    = "device_id"

	// Short-lived markers identifying the writer of the last broadcast
	KeyAuthTokensSyncSource = "auth_tokens_sync_source"
	KeySessionSyncSource    = "session_sync_source"
)

// ErrClosed is returned by operations on a closed area.
var ErrClosed = errors.New("storage area closed")

// Event describes a change to a single key. A nil NewValue means the key was removed.
type Event struct {
	Key      string
	OldValue *string
	NewValue *string
}

// Removed reports whether the event is a deletion.
func (e Event) Removed() bool {
	return e.NewValue == nil
}

// Area is a per-origin key/value store. Implementations emit an Event to
// every subscriber whenever a key actually changes; writing an identical
// value or removing a missing key is silent.
type Area interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error

	// Subscribe registers handler for change events and returns a function
	// that cancels the subscription.
	Subscribe(handler func(Event)) (cancel func())
}
