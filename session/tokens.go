package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
)

// SetTokens replaces the token set, persists it and re-arms the refresh timer.
func (m *Manager) SetTokens(ts authmodel.TokenSet) error {
	m.mu.Lock()
	m.tokens = &ts
	m.scheduleRefreshLocked()
	m.mu.Unlock()

	return m.persist(storage.KeyAuthTokens, storage.KeyAuthTokensSyncSource, ts)
}

// Tokens returns a copy of the current token set, or nil.
func (m *Manager) Tokens() *authmodel.TokenSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil
	}
	ts := *m.tokens
	return &ts
}

// AccessToken returns the current access token, or "" when logged out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return ""
	}
	return m.tokens.AccessToken
}

// IsAuthenticated reports whether an access token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

// UserInfo summarises the identity in the current token set.
func (m *Manager) UserInfo() *authmodel.UserInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil
	}
	return &authmodel.UserInfo{
		UserID:     m.tokens.AuthUserID,
		UserType:   m.tokens.UserType,
		CustomerID: m.tokens.CustomerID,
	}
}

// SetCustomerID attaches a customer id by replacing the token set. The
// refresh timer is left alone since the expiry is unchanged.
func (m *Manager) SetCustomerID(customerID int64) error {
	m.mu.Lock()
	if m.tokens == nil {
		m.mu.Unlock()
		return errors.ErrNotAuthenticated
	}
	updated := m.tokens.WithCustomerID(customerID)
	m.tokens = &updated
	m.mu.Unlock()

	return m.persist(storage.KeyAuthTokens, storage.KeyAuthTokensSyncSource, updated)
}

// ScheduleRefresh (re)arms the refresh timer for the current token set.
func (m *Manager) ScheduleRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduleRefreshLocked()
}

func (m *Manager) scheduleRefreshLocked() {
	m.stopRefreshTimerLocked()

	if m.closed {
		return
	}
	if m.tokens == nil || m.tokens.ExpiresAt.IsZero() {
		log.Warn().Msg("no token expiry available, refresh not scheduled")
		return
	}

	delay := m.refreshDelay(m.tokens.ExpiresAt)
	gen := m.refreshGen
	m.refreshTimer = m.clock.AfterFunc(delay, func() { m.onRefreshTimer(gen) })
	log.Debug().Dur("delay", delay).Time("expires_at", m.tokens.ExpiresAt).Msg("token refresh scheduled")
}

func (m *Manager) refreshDelay(expiresAt time.Time) time.Duration {
	delay := expiresAt.Sub(m.clock.Now()) - m.timings.RefreshLead
	if delay < m.timings.MinRefreshDelay {
		delay = m.timings.MinRefreshDelay
	}
	return delay
}

func (m *Manager) stopRefreshTimerLocked() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
	m.refreshGen++
}

func (m *Manager) onRefreshTimer(gen uint64) {
	m.mu.Lock()
	if gen != m.refreshGen {
		m.mu.Unlock()
		return
	}
	m.refreshTimer = nil
	m.mu.Unlock()

	log.Debug().Msg("refreshing token")
	if _, err := m.RefreshToken(m.ctx); err != nil {
		log.Error().Err(err).Msg("token refresh failed")
		m.terminate(err)
	}
}

// RefreshToken exchanges the refresh token for a new token set. Any failure
// clears the token set.
func (m *Manager) RefreshToken(ctx context.Context) (*authmodel.TokenSet, error) {
	m.mu.Lock()
	var refreshToken string
	if m.tokens != nil {
		refreshToken = m.tokens.RefreshToken
	}
	m.mu.Unlock()

	if refreshToken == "" {
		m.clearTokens()
		return nil, errors.ErrNoRefreshToken
	}

	resp, err := m.gateway.Refresh(ctx, refreshToken)
	if err != nil {
		m.clearTokens()
		return nil, err
	}

	ts, err := resp.ToTokenSet(m.clock.Now())
	if err != nil {
		m.clearTokens()
		return nil, fmt.Errorf("refresh response: %w", err)
	}

	if err := m.createSessionFromTokens(ts); err != nil {
		log.Warn().Err(err).Msg("failed to persist refreshed tokens")
	}
	return &ts, nil
}

// EnsureFresh returns a usable access token, refreshing first when the
// current one has expired. A failed refresh terminates the session.
func (m *Manager) EnsureFresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	ts := m.tokens
	now := m.clock.Now()
	var token string
	valid := false
	if ts != nil {
		token = ts.AccessToken
		valid = ts.HasValidExpiry(now)
	}
	m.mu.Unlock()

	if token == "" {
		return "", errors.ErrNotAuthenticated
	}
	if valid {
		return token, nil
	}

	log.Debug().Msg("access token expired, refreshing before request")
	refreshed, err := m.RefreshToken(ctx)
	if err != nil {
		m.terminate(err)
		return "", err
	}
	return refreshed.AccessToken, nil
}

// AuthHeader returns the Authorization header value for an authenticated call.
func (m *Manager) AuthHeader(ctx context.Context) (string, error) {
	token, err := m.EnsureFresh(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

func (m *Manager) clearTokens() {
	m.mu.Lock()
	m.tokens = nil
	m.stopRefreshTimerLocked()
	m.mu.Unlock()

	if err := m.remove(storage.KeyAuthTokens, storage.KeyAuthTokensSyncSource); err != nil {
		log.Error().Err(err).Msg("failed to remove tokens from storage")
	}
}

func (m *Manager) loadTokensFromStorage() {
	raw, ok, err := m.area.Get(storage.KeyAuthTokens)
	if err != nil {
		log.Error().Err(err).Msg("failed to read stored tokens")
		return
	}
	if !ok {
		return
	}

	var ts authmodel.TokenSet
	if err := json.Unmarshal([]byte(raw), &ts); err != nil {
		log.Error().Err(err).Msg("failed to parse stored tokens, discarding")
		if err := m.area.Remove(storage.KeyAuthTokens); err != nil {
			log.Error().Err(err).Msg("failed to remove unparseable tokens")
		}
		return
	}

	m.mu.Lock()
	m.tokens = &ts
	m.scheduleRefreshLocked()
	m.mu.Unlock()
}
