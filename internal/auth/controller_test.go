package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/desertthunder/vibes/internal/shared"
)

func TestController(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, map[string]any{"access_token": "tok1", "expires_in": 3600})
		session := NewSession(newFakeClock())
		strategy, _ := NewPKCEStrategy(testParams(ts.URL, ts.Client()), NewMemoryStore(), session)
		c := NewController(strategy, session, nil)

		if c.State() != StateIdle {
			t.Fatalf("expected idle, got %s", c.State())
		}

		raw, err := c.Begin(context.Background())
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if c.State() != StateAwaitingRedirect {
			t.Errorf("expected awaiting_redirect, got %s", c.State())
		}

		state := mustParse(t, raw).Query().Get("state")
		ok, err := c.Complete(context.Background(), mustParse(t, testRedirect+"?code=authcode&state="+url.QueryEscape(state)))
		if err != nil || !ok {
			t.Fatalf("expected completion, got (%v, %v)", ok, err)
		}
		if c.State() != StateAuthenticated {
			t.Errorf("expected authenticated, got %s", c.State())
		}
		if c.Err() != nil {
			t.Errorf("expected no error, got %v", c.Err())
		}
		if !c.Session().IsValid() {
			t.Error("expected valid session")
		}
	})

	t.Run("no pending login returns to idle", func(t *testing.T) {
		session := NewSession(nil)
		strategy, _ := NewPKCEStrategy(testParams("https://accounts.example.com/api/token", nil), NewMemoryStore(), session)
		c := NewController(strategy, session, nil)
		c.Begin(context.Background())

		ok, err := c.Complete(context.Background(), mustParse(t, testRedirect))
		if ok || err != nil {
			t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
		}
		if c.State() != StateIdle {
			t.Errorf("expected idle, got %s", c.State())
		}
	})

	t.Run("failure is recorded", func(t *testing.T) {
		session := NewSession(nil)
		strategy, _ := NewPKCEStrategy(testParams("https://accounts.example.com/api/token", nil), NewMemoryStore(), session)
		c := NewController(strategy, session, nil)

		_, err := c.Complete(context.Background(), mustParse(t, testRedirect+"?code=authcode"))
		if !errors.Is(err, shared.ErrMissingVerifier) {
			t.Fatalf("expected ErrMissingVerifier, got %v", err)
		}
		if c.State() != StateFailed {
			t.Errorf("expected failed, got %s", c.State())
		}
		if !errors.Is(c.Err(), shared.ErrMissingVerifier) {
			t.Errorf("expected recorded ErrMissingVerifier, got %v", c.Err())
		}

		c.Begin(context.Background())
		if c.Err() != nil {
			t.Error("expected a new attempt to clear the previous failure")
		}
	})

	t.Run("begin failure", func(t *testing.T) {
		original := randReader
		randReader = failingReader{}
		defer func() { randReader = original }()

		session := NewSession(nil)
		strategy, _ := NewPKCEStrategy(testParams("https://accounts.example.com/api/token", nil), NewMemoryStore(), session)
		c := NewController(strategy, session, nil)

		if _, err := c.Begin(context.Background()); !errors.Is(err, shared.ErrSecureRandomUnavailable) {
			t.Fatalf("expected ErrSecureRandomUnavailable, got %v", err)
		}
		if c.State() != StateFailed {
			t.Errorf("expected failed, got %s", c.State())
		}
	})
}

func TestStateString(t *testing.T) {
	tc := map[State]string{
		StateIdle:             "idle",
		StateAwaitingRedirect: "awaiting_redirect",
		StateExchangingCode:   "exchanging_code",
		StateAuthenticated:    "authenticated",
		StateFailed:           "failed",
		State(99):             "unknown",
	}
	for state, want := range tc {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %s, want %s", int(state), got, want)
		}
	}
}
