package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/internal/errors"
)

// GenerateOTP requests a one time code for the phone number.
func (m *Manager) GenerateOTP(ctx context.Context, request authmodel.OTPRequest) (*authmodel.OTPResponse, error) {
	if request.PhoneNumber == "" || !request.UserType.Valid() {
		return nil, fmt.Errorf("%w: phone number and user type are required", errors.ErrInvalidRequest)
	}
	if request.Purpose == "" {
		request.Purpose = "login"
	}
	return m.gateway.GenerateOTP(ctx, request)
}

// ValidateOTP exchanges a code for a token set and establishes the session.
func (m *Manager) ValidateOTP(ctx context.Context, validation authmodel.OTPValidation) (*authmodel.TokenSet, error) {
	if validation.OTPCode == "" || validation.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: phone number and otp code are required", errors.ErrInvalidRequest)
	}
	if validation.DeviceInfo == (authmodel.DeviceInfo{}) {
		validation.DeviceInfo = m.deviceInfo
	}

	m.mu.Lock()
	m.authenticating = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.authenticating = false
		m.mu.Unlock()
	}()

	resp, err := m.gateway.ValidateOTP(ctx, validation)
	if err != nil {
		return nil, err
	}
	ts, err := resp.ToTokenSet(m.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("otp validation response: %w", err)
	}

	m.mu.Lock()
	m.terminated = false
	m.mu.Unlock()

	if err := m.createSessionFromTokens(ts); err != nil {
		return nil, err
	}
	log.Info().Int64("auth_user_id", ts.AuthUserID).Msg("logged in")
	return &ts, nil
}

// createSessionFromTokens stores the token set and, when the gateway issued a
// backend session, the matching session info.
func (m *Manager) createSessionFromTokens(ts authmodel.TokenSet) error {
	if err := m.SetTokens(ts); err != nil {
		return err
	}
	if ts.SessionID == nil {
		log.Debug().Msg("no backend session issued, token-only mode")
		return nil
	}

	return m.SetSessionInfo(authmodel.SessionInfo{
		SessionID:      *ts.SessionID,
		AuthUserID:     ts.AuthUserID,
		DeviceType:     authmodel.DeviceTypeWeb,
		DeviceID:       m.DeviceID(),
		LastAccessedAt: m.clock.Now(),
		IsActive:       true,
	})
}

// Logout ends the backend session when one exists and clears local state.
// Backend failures are logged and never block the local clear.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	var sessionID, token string
	if m.sessionInfo != nil {
		sessionID = m.sessionInfo.SessionID
	}
	if m.tokens != nil {
		token = m.tokens.AccessToken
	}
	m.mu.Unlock()

	if sessionID != "" && token != "" {
		request := authmodel.LogoutRequest{SessionID: sessionID, DeviceID: m.DeviceID()}
		if err := m.gateway.Logout(ctx, token, request); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("logout error")
		}
	}

	m.clearTokens()
	m.clearSessionInfo()

	m.mu.Lock()
	m.terminated = false
	m.mu.Unlock()
	log.Info().Msg("logged out")
}
