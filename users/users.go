package users

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-session/authmodel"
)

type RoleType string

const (
	RoleCustomer RoleType = "customer"
	RoleGuide    RoleType = "guide"
)

// AuthUser is an identity keyed by phone number and user type. A phone
// number may hold one customer and one guide account.
type AuthUser struct {
	ID          int64
	AreaCode    string
	PhoneNumber string
	UserType    authmodel.UserType
	Roles       []RoleType
	CreatedAt   time.Time
	LastLoginAt time.Time
}

// NewAuthUser creates a user with the default role for its type.
func NewAuthUser(areaCode, phoneNumber string, userType authmodel.UserType, now time.Time) *AuthUser {
	return &AuthUser{
		AreaCode:    areaCode,
		PhoneNumber: phoneNumber,
		UserType:    userType,
		Roles:       []RoleType{RoleType(userType)},
		CreatedAt:   now,
	}
}

// RoleStrings returns the roles as plain strings for token claims.
func (u *AuthUser) RoleStrings() []string {
	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = string(r)
	}
	return roles
}

// PhoneKey normalises an identity lookup key.
func PhoneKey(areaCode, phoneNumber string, userType authmodel.UserType) string {
	return strings.TrimSpace(areaCode) + strings.TrimSpace(phoneNumber) + "|" + string(userType)
}
