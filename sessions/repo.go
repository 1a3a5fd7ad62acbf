package sessions

import "time"

// Repo defines the interface for backend session storage.
type Repo interface {
	// Upsert creates or updates a session
	Upsert(session *Session) error

	// Get retrieves a session by ID
	Get(sessionID string) (*Session, error)

	// Touch records an access at the given time
	Touch(sessionID string, at time.Time) (*Session, error)

	// Deactivate marks a session as logged out
	Deactivate(sessionID string) error
}
