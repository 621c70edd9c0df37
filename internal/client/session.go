package client

import (
	"errors"
	"sync"

	"rewardpoints/internal/auth"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoIdentityClaims = errors.New("access token carries no identity claims")

// Session is the locally held login state: the token pair and the identity
// decoded from it. The identity is for display and routing only; the server
// re-checks the role on every request.
type Session struct {
	mu       sync.RWMutex
	store    TokenStore
	tokens   *auth.TokenPair
	identity *auth.Identity
}

func NewSession(store TokenStore) *Session {
	return &Session{store: store}
}

// DecodeIdentity reads the identity claims of an access token without
// verifying its signature or expiry.
func DecodeIdentity(accessToken string) (auth.Identity, error) {
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return auth.Identity{}, err
	}
	if claims.Username == "" || claims.Role == "" {
		return auth.Identity{}, ErrNoIdentityClaims
	}
	return auth.Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}

// Restore loads a persisted pair and rebuilds the identity from it without
// contacting the server. Expired tokens are restored as-is; the first API
// call will report them. It returns false when nothing was stored.
func (s *Session) Restore() (bool, error) {
	pair, err := s.store.Load()
	if err != nil || pair == nil {
		return false, err
	}
	id, err := DecodeIdentity(pair.Access)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = pair
	s.identity = &id
	return true, nil
}

// start persists pair and makes it current. id may be nil until resolved.
func (s *Session) start(pair *auth.TokenPair, id *auth.Identity) error {
	if err := s.store.Save(pair); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = pair
	s.identity = id
	return nil
}

func (s *Session) setIdentity(id auth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &id
}

func (s *Session) Identity() (auth.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return auth.Identity{}, false
	}
	return *s.identity, true
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.Access
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.Refresh
}

// Clear forgets the session in memory first, so it is gone even if the
// store cannot be cleared.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.tokens = nil
	s.identity = nil
	s.mu.Unlock()
	return s.store.Clear()
}
