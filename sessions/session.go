package sessions

import (
	"time"

	"github.com/jrsteele09/go-auth-session/authmodel"
)

// Session is a backend login session bound to one device.
type Session struct {
	ID             string               // Unique session identifier (UUID)
	AuthUserID     int64                // Owner of the session
	DeviceType     authmodel.DeviceType // web or mobile
	DeviceInfo     authmodel.DeviceInfo // Reported at OTP validation
	IsActive       bool                 // Cleared on logout
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Status converts the session to its wire form.
func (s *Session) Status() authmodel.SessionStatus {
	active := s.IsActive
	lastAccessed := s.LastAccessedAt
	return authmodel.SessionStatus{
		SessionID:      s.ID,
		AuthUserID:     s.AuthUserID,
		DeviceType:     s.DeviceType,
		IsActive:       &active,
		LastAccessedAt: &lastAccessed,
	}
}
