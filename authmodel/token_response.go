package authmodel

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/internal/utils"
)

// TokenResponse is the TokenSet-shaped JSON returned by OTP validation and refresh.
// ExpiresIn is relative (seconds); ExpiresAt, when present, is absolute.
type TokenResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    *int64     `json:"expires_in,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AuthUserID   int64      `json:"auth_user_id"`
	UserType     UserType   `json:"user_type"`
	UserRoles    []string   `json:"user_roles,omitempty"`
	CustomerID   *int64     `json:"customer_id,omitempty"`
	SessionID    *string    `json:"session_id,omitempty"`
}

// ToTokenSet converts the wire response into an absolute-expiry TokenSet.
// When neither expires_in nor expires_at is present the access token's exp
// claim is used, read without verification.
func (r TokenResponse) ToTokenSet(receivedAt time.Time) (TokenSet, error) {
	if strings.TrimSpace(r.AccessToken) == "" {
		return TokenSet{}, fmt.Errorf("token response missing access_token")
	}

	var expiresAt time.Time
	switch {
	case r.ExpiresAt != nil:
		expiresAt = *r.ExpiresAt
	case r.ExpiresIn != nil:
		expiresAt = receivedAt.Add(time.Duration(*r.ExpiresIn) * time.Second)
	default:
		expiresAt = expiryFromJWT(r.AccessToken)
	}

	ts := TokenSet{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt,
		AuthUserID:   r.AuthUserID,
		UserType:     r.UserType,
		UserRoles:    append([]string(nil), r.UserRoles...),
		CustomerID:   r.CustomerID,
	}
	if sid := utils.Value(r.SessionID); sid != "" {
		ts.SessionID = &sid
	}
	return ts, nil
}

func expiryFromJWT(rawToken string) time.Time {
	token, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// SessionStatus is returned by GET /api/v1/auth/session/{id}.
type SessionStatus struct {
	SessionID      string     `json:"session_id,omitempty"`
	AuthUserID     int64      `json:"auth_user_id,omitempty"`
	DeviceID       string     `json:"device_id,omitempty"`
	DeviceType     DeviceType `json:"device_type,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// Active treats a missing is_active field as active.
func (s SessionStatus) Active() bool {
	return utils.ValueOr(s.IsActive, true)
}
