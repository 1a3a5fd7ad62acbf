// Package authmodel holds the token, session and OTP types exchanged
// between the session client and the auth gateway.
package authmodel

import (
	"time"
)

type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeGuide    UserType = "guide"
)

// Valid reports whether u is a known user type
func (u UserType) Valid() bool {
	return u == UserTypeCustomer || u == UserTypeGuide
}

type DeviceType string

const (
	DeviceTypeWeb    DeviceType = "web"
	DeviceTypeMobile DeviceType = "mobile"
)

// TokenSet is the credential bundle held by a session manager. It is only
// ever replaced as a whole.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	AuthUserID   int64     `json:"auth_user_id"`
	UserType     UserType  `json:"user_type"`
	UserRoles    []string  `json:"user_roles,omitempty"`
	CustomerID   *int64    `json:"customer_id,omitempty"` // Set after customer creation
	SessionID    *string   `json:"session_id,omitempty"`  // Backend session, when issued
}

// HasValidExpiry reports whether the token set carries a future expiry.
func (t *TokenSet) HasValidExpiry(now time.Time) bool {
	return t != nil && !t.ExpiresAt.IsZero() && t.ExpiresAt.After(now)
}

// WithCustomerID returns a copy of the token set carrying customerID.
func (t TokenSet) WithCustomerID(customerID int64) TokenSet {
	roles := append([]string(nil), t.UserRoles...)
	t.UserRoles = roles
	t.CustomerID = &customerID
	return t
}

// SessionInfo tracks the backend session bound to a token set.
type SessionInfo struct {
	SessionID      string     `json:"session_id"`
	AuthUserID     int64      `json:"auth_user_id"`
	DeviceType     DeviceType `json:"device_type"`
	DeviceID       string     `json:"device_id"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	IsActive       bool       `json:"is_active"`
}

// UserInfo is the identity summary derived from a TokenSet.
type UserInfo struct {
	UserID     int64
	UserType   UserType
	CustomerID *int64
}
