package refresh

import (
	"time"
)

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the Token field (a random string).
type StoredRefreshToken struct {
	Token      string    // The actual random token string (sent to client)
	AuthUserID int64     // Server-side metadata
	SessionID  string    // Backend session the token keeps alive
	Iat        time.Time // Issued at time
}

// Repo manages server-side storage of refresh token metadata keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	DeleteBySession(sessionID string) error
}
