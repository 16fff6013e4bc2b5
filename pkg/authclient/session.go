package authclient

import (
	"sync"
	"time"
)

type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"nome_usuario"`
	Email            string    `json:"email"`
	Name             string    `json:"nome"`
	TenantID         string    `json:"empresa_id"`
	Role             string    `json:"perfil"`
	TwoFactorEnabled bool      `json:"twoFactorAtivo"`
	CreatedAt        time.Time `json:"criadoEm"`
}

// Session holds the tokens of one signed-in user. It is safe for concurrent
// use; the zero value is an empty session.
type Session struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	user         *User
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Active reports whether the session has an access token that is still
// valid at now plus skew.
func (s *Session) Active(now time.Time, skew time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != "" && now.Add(skew).Before(s.expiresAt)
}

func (s *Session) set(t tokenResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = t.AccessToken
	if t.RefreshToken != "" {
		s.refreshToken = t.RefreshToken
	}
	s.expiresAt = time.Unix(t.ExpiresAt, 0)
	if t.User != nil {
		s.user = t.User
	}
}

// Clear forgets every token. Tokens are stateless, so this is all a client
// side logout does.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.user = nil
}
