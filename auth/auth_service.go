// Package auth implements the OTP login flow served by the development gateway.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/otps"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/token/refresh"
	"github.com/jrsteele09/go-auth-session/users"
)

const defaultPurpose = "login"

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users         users.UserRepo // Phone identities
	Sessions      sessions.Repo  // Backend sessions
	OTPs          otps.Repo      // Pending OTP requests
	RefreshTokens refresh.Repo   // Opaque refresh tokens
}

// Service issues OTPs, exchanges them for tokens and manages backend sessions.
type Service struct {
	repos     Repos
	config    config.GatewayConfig
	tokens    *token.Creator
	refresh   *refresh.Manager
	logCodes  bool
	nowTime   func() time.Time
	codeMaker func(length int) (string, error)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithCodeLogging logs generated OTP codes, for local development only.
func WithCodeLogging(enabled bool) ServiceOption {
	return func(s *Service) {
		s.logCodes = enabled
	}
}

func NewService(repos Repos, cfg config.GatewayConfig, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, fmt.Errorf("[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, fmt.Errorf("[NewService] Sessions repo is required")
	}
	if repos.OTPs == nil {
		return nil, fmt.Errorf("[NewService] OTPs repo is required")
	}
	if repos.RefreshTokens == nil {
		return nil, fmt.Errorf("[NewService] RefreshTokens repo is required")
	}

	s := &Service{
		repos:     repos,
		config:    cfg,
		tokens:    token.NewCreator(token.NewHMACSigner(cfg.GetSigningKey()), cfg.GetAccessTokenExpiry()),
		refresh:   refresh.NewManager(repos.RefreshTokens, cfg),
		nowTime:   time.Now,
		codeMaker: otps.GenerateCode,
	}
	for _, opt := range options {
		opt(s)
	}
	if code := cfg.GetDevOTPCode(); code != "" {
		s.codeMaker = func(int) (string, error) { return code, nil }
	}
	return s, nil
}

// GenerateOTP stores a new hashed OTP for the phone number.
func (s *Service) GenerateOTP(request authmodel.OTPRequest) (*authmodel.OTPResponse, error) {
	if err := validateIdentity(request.AreaCode, request.PhoneNumber, request.UserType); err != nil {
		return nil, err
	}
	purpose := request.Purpose
	if purpose == "" {
		purpose = defaultPurpose
	}

	code, err := s.codeMaker(s.config.GetOTPLength())
	if err != nil {
		return nil, err
	}
	hash, err := otps.HashCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash otp: %w", err)
	}

	otp := &otps.Request{
		ID:          uuid.New().String(),
		AreaCode:    request.AreaCode,
		PhoneNumber: request.PhoneNumber,
		UserType:    request.UserType,
		Purpose:     purpose,
		CodeHash:    hash,
		ExpiresAt:   s.nowTime().Add(s.config.GetOTPExpiry()),
	}
	if err := s.repos.OTPs.Upsert(otp); err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}

	event := log.Info().Str("request_id", otp.ID).Str("purpose", purpose)
	if s.logCodes {
		event = event.Str("otp_code", code)
	}
	event.Msg("otp generated")

	return &authmodel.OTPResponse{RequestID: otp.ID}, nil
}

// ValidateOTP checks the code, finds or creates the user and opens a session.
func (s *Service) ValidateOTP(validation authmodel.OTPValidation) (*authmodel.TokenResponse, error) {
	if err := validateIdentity(validation.AreaCode, validation.PhoneNumber, validation.UserType); err != nil {
		return nil, err
	}
	if validation.RequestID == "" || validation.OTPCode == "" {
		return nil, fmt.Errorf("%w: request_id and otp_code are required", errors.ErrInvalidRequest)
	}

	otp, err := s.repos.OTPs.Get(validation.RequestID)
	if err != nil {
		return nil, errors.ErrInvalidOTP
	}
	if err := s.checkOTP(otp, validation); err != nil {
		return nil, err
	}
	if err := s.repos.OTPs.Delete(otp.ID); err != nil {
		return nil, fmt.Errorf("failed to consume otp: %w", err)
	}

	user, err := s.findOrCreateUser(validation)
	if err != nil {
		return nil, err
	}

	now := s.nowTime()
	session := &sessions.Session{
		ID:             uuid.New().String(),
		AuthUserID:     user.ID,
		DeviceType:     deviceType(validation.DeviceInfo),
		DeviceInfo:     validation.DeviceInfo,
		IsActive:       true,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if err := s.repos.Sessions.Upsert(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Int64("auth_user_id", user.ID).Str("session_id", session.ID).Msg("otp login")
	return s.issueTokens(user, session.ID)
}

func (s *Service) checkOTP(otp *otps.Request, validation authmodel.OTPValidation) error {
	if otp.AreaCode != validation.AreaCode || otp.PhoneNumber != validation.PhoneNumber || otp.UserType != validation.UserType {
		return errors.ErrInvalidOTP
	}
	if !s.nowTime().Before(otp.ExpiresAt) {
		_ = s.repos.OTPs.Delete(otp.ID)
		return errors.ErrOTPExpired
	}
	if otp.Attempts >= s.config.GetOTPMaxAttempts() {
		return errors.ErrOTPAttempts
	}
	if !otp.Matches(validation.OTPCode) {
		otp.Attempts++
		if err := s.repos.OTPs.Upsert(otp); err != nil {
			return fmt.Errorf("failed to record otp attempt: %w", err)
		}
		return errors.ErrInvalidOTP
	}
	return nil
}

func (s *Service) findOrCreateUser(validation authmodel.OTPValidation) (*users.AuthUser, error) {
	user, err := s.repos.Users.GetByPhone(validation.AreaCode, validation.PhoneNumber, validation.UserType)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		user = users.NewAuthUser(validation.AreaCode, validation.PhoneNumber, validation.UserType, s.nowTime())
	}
	user.LastLoginAt = s.nowTime()
	if err := s.repos.Users.Upsert(user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}

// Refresh rotates the refresh token and issues a new access token for the
// same session.
func (s *Service) Refresh(refreshToken string) (*authmodel.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh_token is required", errors.ErrInvalidRequest)
	}

	rt, err := s.refresh.Rotate(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.repos.Sessions.Get(rt.SessionID)
	if err != nil {
		return nil, errors.ErrInvalidRefreshToken
	}
	if !session.IsActive {
		return nil, errors.ErrSessionInactive
	}
	if _, err := s.repos.Sessions.Touch(session.ID, s.nowTime()); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	user, err := s.repos.Users.GetByID(rt.AuthUserID)
	if err != nil {
		return nil, errors.ErrInvalidRefreshToken
	}
	return s.issueTokens(user, session.ID)
}

func (s *Service) issueTokens(user *users.AuthUser, sessionID string) (*authmodel.TokenResponse, error) {
	accessToken, err := s.tokens.CreateAccessToken(user, sessionID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.refresh.Create(user.ID, sessionID)
	if err != nil {
		return nil, err
	}

	expiresIn := int64(s.tokens.Expiry().Seconds())
	return &authmodel.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    &expiresIn,
		AuthUserID:   user.ID,
		UserType:     user.UserType,
		UserRoles:    user.RoleStrings(),
		SessionID:    &sessionID,
	}, nil
}

// Authenticate verifies a bearer access token.
func (s *Service) Authenticate(rawToken string) (*token.AccessClaims, error) {
	return s.tokens.Verify(rawToken)
}

// Logout deactivates the session and revokes its refresh token.
func (s *Service) Logout(claims *token.AccessClaims, request authmodel.LogoutRequest) error {
	sessionID := request.SessionID
	if sessionID == "" {
		sessionID = claims.SessionID
	}

	session, err := s.ownedSession(claims, sessionID)
	if err != nil {
		return err
	}
	if err := s.repos.Sessions.Deactivate(session.ID); err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	if err := s.refresh.RevokeSession(session.ID); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	log.Info().Str("session_id", session.ID).Str("device_id", request.DeviceID).Msg("logout")
	return nil
}

// GetSession returns the session and records the access.
func (s *Service) GetSession(claims *token.AccessClaims, sessionID string) (*authmodel.SessionStatus, error) {
	if _, err := s.ownedSession(claims, sessionID); err != nil {
		return nil, err
	}
	session, err := s.repos.Sessions.Touch(sessionID, s.nowTime())
	if err != nil {
		return nil, err
	}
	status := session.Status()
	return &status, nil
}

func (s *Service) ownedSession(claims *token.AccessClaims, sessionID string) (*sessions.Session, error) {
	session, err := s.repos.Sessions.Get(sessionID)
	if err != nil {
		return nil, errors.ErrSessionNotFound
	}
	if session.AuthUserID != claims.AuthUserID {
		return nil, errors.ErrSessionNotFound
	}
	return session, nil
}

func validateIdentity(areaCode, phoneNumber string, userType authmodel.UserType) error {
	if strings.TrimSpace(areaCode) == "" || strings.TrimSpace(phoneNumber) == "" {
		return fmt.Errorf("%w: area_code and phone_number are required", errors.ErrInvalidRequest)
	}
	if !userType.Valid() {
		return fmt.Errorf("%w: user_type must be customer or guide", errors.ErrInvalidRequest)
	}
	return nil
}

func deviceType(info authmodel.DeviceInfo) authmodel.DeviceType {
	if authmodel.DeviceType(info.DeviceType) == authmodel.DeviceTypeMobile {
		return authmodel.DeviceTypeMobile
	}
	return authmodel.DeviceTypeWeb
}
