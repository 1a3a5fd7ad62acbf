package fakeuserrepo

import (
	"sync"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[int64]*users.AuthUser
	phoneIDs map[string]int64 // phone key to user id
	nextID   int64
	lock     sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users:    make(map[int64]*users.AuthUser),
		phoneIDs: make(map[string]int64),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.AuthUser) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == 0 {
		ur.nextID++
		user.ID = ur.nextID
	}
	ur.users[user.ID] = user
	ur.phoneIDs[users.PhoneKey(user.AreaCode, user.PhoneNumber, user.UserType)] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByID(id int64) (*users.AuthUser, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return user, nil
}

func (ur *FakeUserRepo) GetByPhone(areaCode, phoneNumber string, userType authmodel.UserType) (*users.AuthUser, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.phoneIDs[users.PhoneKey(areaCode, phoneNumber, userType)]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return ur.users[id], nil
}
