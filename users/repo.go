package users

import "github.com/jrsteele09/go-auth-session/authmodel"

type UserRepo interface {
	Upsert(user *AuthUser) error
	GetByID(id int64) (*AuthUser, error)
	GetByPhone(areaCode, phoneNumber string, userType authmodel.UserType) (*AuthUser, error)
}
