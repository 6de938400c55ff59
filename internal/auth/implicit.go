package auth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/vibes/internal/shared"
	"golang.org/x/oauth2"
)

// ImplicitStrategy implements the implicit grant: the token arrives in the redirect fragment
// and there is no verifier or exchange step.
type ImplicitStrategy struct {
	config  *oauth2.Config
	store   VerifierStore
	session *Session
}

// NewImplicitStrategy creates an [ImplicitStrategy].
func NewImplicitStrategy(params Params, store VerifierStore, session *Session) (*ImplicitStrategy, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if session == nil {
		session = NewSession(nil)
	}

	return &ImplicitStrategy{
		config:  params.oauthConfig(),
		store:   store,
		session: session,
	}, nil
}

func (s *ImplicitStrategy) Name() string { return FlowImplicit }

// BeginLogin stores a fresh state and returns the /authorize URL with response_type=token.
func (s *ImplicitStrategy) BeginLogin(ctx context.Context) (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, StateKey, state); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", "token")), nil
}

// HasResponse reports a token or error in the fragment, or an error in the query string.
// The authorization server reports a denial in the query even for the implicit grant.
func (s *ImplicitStrategy) HasResponse(redirect *url.URL) bool {
	if redirect != nil && redirect.Query().Get("error") != "" {
		return true
	}
	values, err := fragmentValues(redirect)
	if err != nil {
		return false
	}
	return values.Get("access_token") != "" || values.Get("error") != ""
}

// CompleteLogin reads access_token and expires_in from the redirect fragment.
func (s *ImplicitStrategy) CompleteLogin(ctx context.Context, redirect *url.URL) (bool, error) {
	if redirect != nil {
		if err := authorizationError(redirect.Query()); err != nil {
			_ = s.store.Delete(ctx, StateKey)
			return false, err
		}
	}

	values, err := fragmentValues(redirect)
	if err != nil {
		return false, fmt.Errorf("%w: malformed redirect fragment: %v", shared.ErrTokenExchangeRejected, err)
	}

	if err := authorizationError(values); err != nil {
		_ = s.store.Delete(ctx, StateKey)
		return false, err
	}

	token := values.Get("access_token")
	if token == "" {
		return false, nil
	}

	if err := checkState(ctx, s.store, values.Get("state")); err != nil {
		return false, err
	}

	seconds, err := strconv.Atoi(values.Get("expires_in"))
	if err != nil || seconds <= 0 {
		return false, fmt.Errorf("%w: invalid expires_in %q", shared.ErrTokenExchangeRejected, values.Get("expires_in"))
	}

	s.session.SetToken(token, time.Duration(seconds)*time.Second)
	_ = s.store.Delete(ctx, StateKey)

	return true, nil
}

// fragmentValues parses "#access_token=...&expires_in=..." from redirect.
func fragmentValues(redirect *url.URL) (url.Values, error) {
	if redirect == nil {
		return url.Values{}, nil
	}
	fragment := redirect.EscapedFragment()
	if fragment == "" {
		return url.Values{}, nil
	}
	return url.ParseQuery(fragment)
}
