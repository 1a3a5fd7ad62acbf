package fakeotprepo

import (
	"sync"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/otps"
)

var _ otps.Repo = (*FakeOTPRepo)(nil)

type FakeOTPRepo struct {
	requests map[string]*otps.Request
	lock     sync.RWMutex
}

func NewFakeOTPRepo() otps.Repo {
	return &FakeOTPRepo{
		requests: make(map[string]*otps.Request),
	}
}

func (or *FakeOTPRepo) Upsert(request *otps.Request) error {
	or.lock.Lock()
	defer or.lock.Unlock()

	copied := *request
	or.requests[request.ID] = &copied
	return nil
}

func (or *FakeOTPRepo) Get(requestID string) (*otps.Request, error) {
	or.lock.RLock()
	defer or.lock.RUnlock()

	request, ok := or.requests[requestID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (or *FakeOTPRepo) Delete(requestID string) error {
	or.lock.Lock()
	defer or.lock.Unlock()

	if _, ok := or.requests[requestID]; !ok {
		return errors.ErrNotFound
	}
	delete(or.requests, requestID)
	return nil
}
