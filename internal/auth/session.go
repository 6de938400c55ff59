package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/vibes/internal/shared"
)

// Clock supplies the current time. Tests substitute a fixed or stepping clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to [Clock].
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Session is the in-memory token/expiry pair for one running process.
//
// It is written by the login strategies and read by every API collaborator.
type Session struct {
	mu     sync.RWMutex
	clock  Clock
	token  string
	expiry time.Time
}

// NewSession returns an empty session. A nil clock uses [SystemClock].
func NewSession(clock Clock) *Session {
	if clock == nil {
		clock = SystemClock
	}
	return &Session{clock: clock}
}

// SetToken stores token with an absolute expiry of now + expiresIn.
func (s *Session) SetToken(token string, expiresIn time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiry = s.clock.Now().Add(expiresIn)
}

// Clear forgets the token.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiry = time.Time{}
}

// IsValid reports whether a token is held and the clock is strictly before its expiry.
func (s *Session) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.clock.Now().Before(s.expiry)
}

// Bearer returns the access token, or [shared.ErrNotAuthenticated] when the session is not valid.
func (s *Session) Bearer() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", fmt.Errorf("%w: no access token, log in first", shared.ErrNotAuthenticated)
	}
	if !s.clock.Now().Before(s.expiry) {
		return "", fmt.Errorf("%w: access token expired at %s, log in again", shared.ErrNotAuthenticated, s.expiry.Format(time.RFC3339))
	}
	return s.token, nil
}

// Expiry returns the absolute expiry instant, or the zero time when no token is held.
func (s *Session) Expiry() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiry
}

// Remaining is the time left before expiry, never negative.
func (s *Session) Remaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return 0
	}
	if d := s.expiry.Sub(s.clock.Now()); d > 0 {
		return d
	}
	return 0
}
