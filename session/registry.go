package session

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
)

// SetSessionInfo replaces the session info, persists it and re-arms the validator.
func (m *Manager) SetSessionInfo(info authmodel.SessionInfo) error {
	m.mu.Lock()
	m.sessionInfo = &info
	m.startSessionValidationLocked()
	m.mu.Unlock()

	if !info.IsActive {
		m.monitor.Cancel()
	}
	return m.persist(storage.KeySessionInfo, storage.KeySessionSyncSource, info)
}

// SessionInfo returns a copy of the current session info, or nil.
func (m *Manager) SessionInfo() *authmodel.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionInfo == nil {
		return nil
	}
	info := *m.sessionInfo
	return &info
}

func (m *Manager) startSessionValidationLocked() {
	m.stopValidationTimerLocked()

	if m.closed || m.sessionInfo == nil || !m.sessionInfo.IsActive {
		return
	}
	gen := m.validationGen
	m.validationTimer = m.clock.AfterFunc(m.timings.ValidationInterval, func() { m.onValidationTimer(gen) })
}

func (m *Manager) stopValidationTimerLocked() {
	if m.validationTimer != nil {
		m.validationTimer.Stop()
		m.validationTimer = nil
	}
	m.validationGen++
}

func (m *Manager) onValidationTimer(gen uint64) {
	m.mu.Lock()
	if gen != m.validationGen {
		m.mu.Unlock()
		return
	}
	m.validationTimer = nil
	m.mu.Unlock()

	if !m.ValidateSession(m.ctx) {
		m.terminate(errors.ErrSessionInactive)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.validationTimer == nil {
		m.startSessionValidationLocked()
	}
}

// ValidateSession asks the gateway whether the backend session is still
// live. Without a session id it returns false and makes no request.
func (m *Manager) ValidateSession(ctx context.Context) bool {
	m.mu.Lock()
	var sessionID string
	if m.sessionInfo != nil {
		sessionID = m.sessionInfo.SessionID
	}
	m.mu.Unlock()

	if sessionID == "" {
		log.Warn().Msg("no session id available for validation")
		return false
	}

	token, err := m.EnsureFresh(ctx)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("session validation error")
		return false
	}

	status, err := m.gateway.GetSession(ctx, token, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("session validation failed")
		return false
	}
	if !status.Active() {
		log.Warn().Str("session_id", sessionID).Msg("session no longer active")
		return false
	}

	if status.LastAccessedAt != nil {
		m.mu.Lock()
		current := m.sessionInfo
		var updated authmodel.SessionInfo
		apply := current != nil && current.SessionID == sessionID
		if apply {
			updated = *current
			updated.LastAccessedAt = *status.LastAccessedAt
		}
		m.mu.Unlock()

		if apply {
			if err := m.SetSessionInfo(updated); err != nil {
				log.Warn().Err(err).Msg("failed to persist session info")
			}
		}
	}
	return true
}

// sessionActive gates the activity monitor.
func (m *Manager) sessionActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionInfo != nil && m.sessionInfo.IsActive
}

// touchSession records local activity on the session.
func (m *Manager) touchSession() {
	m.mu.Lock()
	if m.sessionInfo == nil || m.sessionInfo.SessionID == "" {
		m.mu.Unlock()
		return
	}
	info := *m.sessionInfo
	m.mu.Unlock()

	info.LastAccessedAt = m.clock.Now()
	if err := m.SetSessionInfo(info); err != nil {
		log.Warn().Err(err).Msg("failed to update session activity")
	}
}

func (m *Manager) clearSessionInfo() {
	m.mu.Lock()
	m.sessionInfo = nil
	m.stopValidationTimerLocked()
	m.mu.Unlock()

	m.monitor.Cancel()
	if err := m.remove(storage.KeySessionInfo, storage.KeySessionSyncSource); err != nil {
		log.Error().Err(err).Msg("failed to remove session info from storage")
	}
}

func (m *Manager) loadSessionInfoFromStorage() {
	raw, ok, err := m.area.Get(storage.KeySessionInfo)
	if err != nil {
		log.Error().Err(err).Msg("failed to read stored session info")
		return
	}
	if !ok {
		return
	}

	var info authmodel.SessionInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		log.Error().Err(err).Msg("failed to parse stored session info")
		return
	}

	m.mu.Lock()
	m.sessionInfo = &info
	m.startSessionValidationLocked()
	m.mu.Unlock()
}
