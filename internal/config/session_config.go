package config

import "time"

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshLeadTime is how long before expiry the access token is refreshed
func (Session) GetRefreshLeadTime() time.Duration {
	return 5 * time.Minute
}

// GetMinRefreshDelay is the floor applied to every scheduled refresh
func (Session) GetMinRefreshDelay() time.Duration {
	return 10 * time.Second
}

func (Session) GetSessionValidationInterval() time.Duration {
	return getDuration("SESSION_VALIDATION_INTERVAL", 5*time.Minute)
}

func (Session) GetActivityIdleTimeout() time.Duration {
	return time.Minute
}

func (Session) GetSyncMarkerTTL() time.Duration {
	return 100 * time.Millisecond
}
