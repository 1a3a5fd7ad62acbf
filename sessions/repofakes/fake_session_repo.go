package fakesessionrepo

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() sessions.Repo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
	}
}

func (sr *FakeSessionRepo) Upsert(session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	copied := *session
	sr.sessions[session.ID] = &copied
	return nil
}

func (sr *FakeSessionRepo) Get(sessionID string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[sessionID]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (sr *FakeSessionRepo) Touch(sessionID string, at time.Time) (*sessions.Session, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[sessionID]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	session.LastAccessedAt = at
	copied := *session
	return &copied, nil
}

func (sr *FakeSessionRepo) Deactivate(sessionID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[sessionID]
	if !ok {
		return errors.ErrSessionNotFound
	}
	session.IsActive = false
	return nil
}
