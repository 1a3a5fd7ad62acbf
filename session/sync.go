package session

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/storage"
)

// persist writes value under key, tagging the write with this manager's id so
// its own change event is ignored.
func (m *Manager) persist(key, markerKey string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := m.area.Set(markerKey, m.id); err != nil {
		log.Warn().Err(err).Str("key", markerKey).Msg("failed to set sync marker")
	}
	if err := m.area.Set(key, string(data)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to persist to storage")
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	m.clearMarkerLater(markerKey)
	return nil
}

// remove deletes key, tagging the removal the same way persist tags writes.
func (m *Manager) remove(key, markerKey string) error {
	if err := m.area.Set(markerKey, m.id); err != nil {
		log.Warn().Err(err).Str("key", markerKey).Msg("failed to set sync marker")
	}
	if err := m.area.Remove(key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	m.clearMarkerLater(markerKey)
	return nil
}

func (m *Manager) clearMarkerLater(markerKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prior, ok := m.markerTimers[markerKey]; ok {
		prior.Stop()
	}
	if m.closed {
		return
	}
	m.markerTimers[markerKey] = m.clock.AfterFunc(m.timings.SyncMarkerTTL, func() {
		m.mu.Lock()
		delete(m.markerTimers, markerKey)
		m.mu.Unlock()

		if v, ok, err := m.area.Get(markerKey); err == nil && ok && v == m.id {
			if err := m.area.Remove(markerKey); err != nil {
				log.Warn().Err(err).Str("key", markerKey).Msg("failed to clear sync marker")
			}
		}
	})
}

func (m *Manager) isOwnWrite(markerKey string) bool {
	v, ok, err := m.area.Get(markerKey)
	return err == nil && ok && v == m.id
}

func (m *Manager) handleStorageEvent(e storage.Event) {
	switch e.Key {
	case storage.KeyAuthTokens:
		if m.isOwnWrite(storage.KeyAuthTokensSyncSource) {
			return
		}
		m.syncTokens(e)
	case storage.KeySessionInfo:
		if m.isOwnWrite(storage.KeySessionSyncSource) {
			return
		}
		m.syncSessionInfo(e)
	}
}

func (m *Manager) syncTokens(e storage.Event) {
	if e.Removed() {
		m.mu.Lock()
		empty := m.tokens == nil && m.sessionInfo == nil
		m.mu.Unlock()
		if empty {
			return
		}
		log.Info().Msg("tokens removed by another peer, logging out")
		m.clearTokens()
		m.clearSessionInfo()
		return
	}

	var ts authmodel.TokenSet
	if err := json.Unmarshal([]byte(*e.NewValue), &ts); err != nil {
		log.Error().Err(err).Msg("failed to parse synced tokens")
		return
	}

	m.mu.Lock()
	m.tokens = &ts
	m.terminated = false
	m.scheduleRefreshLocked()
	m.mu.Unlock()
	log.Debug().Msg("tokens synced from another peer")
}

func (m *Manager) syncSessionInfo(e storage.Event) {
	if e.Removed() {
		m.mu.Lock()
		empty := m.sessionInfo == nil
		m.mu.Unlock()
		if !empty {
			m.clearSessionInfo()
		}
		return
	}

	var info authmodel.SessionInfo
	if err := json.Unmarshal([]byte(*e.NewValue), &info); err != nil {
		log.Error().Err(err).Msg("failed to parse synced session info")
		return
	}

	m.mu.Lock()
	m.sessionInfo = &info
	m.startSessionValidationLocked()
	m.mu.Unlock()

	if !info.IsActive {
		m.monitor.Cancel()
	}
	log.Debug().Str("session_id", info.SessionID).Msg("session info synced from another peer")
}
