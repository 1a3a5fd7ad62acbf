package refreshrepofake

import (
	"sync"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens     map[string]*refresh.StoredRefreshToken
	sessionIDs map[string]string // session ID to token
	lock       sync.RWMutex
}

func NewFakeRefreshTokenRepo() refresh.Repo {
	return &FakeRefreshTokenRepo{
		tokens:     make(map[string]*refresh.StoredRefreshToken),
		sessionIDs: make(map[string]string),
	}
}

func (tr *FakeRefreshTokenRepo) Upsert(refreshToken *refresh.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	tr.tokens[refreshToken.Token] = refreshToken
	tr.sessionIDs[refreshToken.SessionID] = refreshToken.Token
	return nil
}

func (tr *FakeRefreshTokenRepo) Delete(token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return errors.ErrNotFound
	}
	if tr.sessionIDs[rt.SessionID] == token {
		delete(tr.sessionIDs, rt.SessionID)
	}
	delete(tr.tokens, token)
	return nil
}

func (tr *FakeRefreshTokenRepo) Get(token string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return rt, nil
}

func (tr *FakeRefreshTokenRepo) DeleteBySession(sessionID string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	token, ok := tr.sessionIDs[sessionID]
	if !ok {
		return nil
	}
	delete(tr.sessionIDs, sessionID)
	delete(tr.tokens, token)
	return nil
}
