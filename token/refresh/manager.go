package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo   Repo
	config config.GatewayConfig
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg config.GatewayConfig) *Manager {
	return &Manager{
		repo:   repo,
		config: cfg,
	}
}

// Create generates a new refresh token for a session, replacing any token
// the session already holds (single refresh token per session)
func (m *Manager) Create(authUserID int64, sessionID string) (string, error) {
	if err := m.repo.DeleteBySession(sessionID); err != nil {
		return "", fmt.Errorf("failed to delete existing refresh token: %w", err)
	}

	tokenBytes := make([]byte, m.config.GetRefreshTokenLength()) // Configured length (default: 32 bytes = 256 bits)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:      tokenStr,
		AuthUserID: authUserID,
		SessionID:  sessionID,
		Iat:        NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return tokenStr, nil
}

// Rotate consumes token and returns its metadata. The caller issues the
// replacement with Create.
func (m *Manager) Rotate(token string) (*StoredRefreshToken, error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, errors.ErrInvalidRefreshToken
	}
	if err := m.repo.Delete(token); err != nil {
		return nil, fmt.Errorf("failed to delete refresh token: %w", err)
	}
	if m.IsExpired(rt) {
		return nil, errors.ErrRefreshTokenExpired
	}
	return rt, nil
}

// RevokeSession removes the refresh token held by a session
func (m *Manager) RevokeSession(sessionID string) error {
	return m.repo.DeleteBySession(sessionID)
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return NowTimeFunc().Sub(rt.Iat) > m.config.GetRefreshTokenExpiry()
}
