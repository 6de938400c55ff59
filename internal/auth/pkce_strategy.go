package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/vibes/internal/shared"
	"golang.org/x/oauth2"
)

// PKCEStrategy implements the authorization code flow with a S256 code challenge.
type PKCEStrategy struct {
	params  Params
	config  *oauth2.Config
	store   VerifierStore
	session *Session
}

// NewPKCEStrategy creates a [PKCEStrategy]. The token endpoint is required.
func NewPKCEStrategy(params Params, store VerifierStore, session *Session) (*PKCEStrategy, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.TokenURL == "" {
		return nil, fmt.Errorf("%w: token_url is required for the pkce flow", shared.ErrInvalidConfig)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if session == nil {
		session = NewSession(nil)
	}

	return &PKCEStrategy{
		params:  params,
		config:  params.oauthConfig(),
		store:   store,
		session: session,
	}, nil
}

func (p *PKCEStrategy) Name() string { return FlowPKCE }

// BeginLogin generates a fresh verifier and state, stores both (overwriting any earlier attempt)
// and returns the /authorize URL carrying the derived challenge.
func (p *PKCEStrategy) BeginLogin(ctx context.Context) (string, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return "", err
	}
	state, err := GenerateState()
	if err != nil {
		return "", err
	}

	if err := p.store.Put(ctx, VerifierKey, string(verifier)); err != nil {
		return "", fmt.Errorf("failed to store code verifier: %w", err)
	}
	if err := p.store.Put(ctx, StateKey, state); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return p.AuthorizationURL(DeriveChallenge(verifier), state), nil
}

// AuthorizationURL builds the /authorize URL for challenge and state without touching the store.
func (p *PKCEStrategy) AuthorizationURL(challenge Challenge, state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", ChallengeMethod),
		oauth2.SetAuthURLParam("code_challenge", string(challenge)),
	)
}

func (p *PKCEStrategy) HasResponse(redirect *url.URL) bool {
	if redirect == nil {
		return false
	}
	q := redirect.Query()
	return q.Get("code") != "" || q.Get("error") != ""
}

// CompleteLogin exchanges the code in the redirect query for an access token.
//
// A missing verifier fails with [shared.ErrMissingVerifier] before any network call.
// The exchange is never retried: authorization codes are single use.
func (p *PKCEStrategy) CompleteLogin(ctx context.Context, redirect *url.URL) (bool, error) {
	if redirect == nil {
		return false, nil
	}
	q := redirect.Query()

	if err := authorizationError(q); err != nil {
		return false, err
	}

	code := q.Get("code")
	if code == "" {
		return false, nil
	}

	verifier, ok, err := p.store.Get(ctx, VerifierKey)
	if err != nil {
		return false, fmt.Errorf("failed to read code verifier: %w", err)
	}
	if !ok || verifier == "" {
		return false, shared.ErrMissingVerifier
	}

	if err := checkState(ctx, p.store, q.Get("state")); err != nil {
		return false, err
	}

	if p.params.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.params.HTTPClient)
	}

	token, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return false, exchangeError(err)
	}

	lifetime := tokenLifetime(token)
	if lifetime <= 0 {
		return false, fmt.Errorf("%w: response missing expires_in", shared.ErrTokenExchangeRejected)
	}

	p.session.SetToken(token.AccessToken, lifetime)

	_ = p.store.Delete(ctx, VerifierKey)
	_ = p.store.Delete(ctx, StateKey)

	return true, nil
}

// tokenLifetime reads the relative expires_in of token.
func tokenLifetime(token *oauth2.Token) time.Duration {
	if token.ExpiresIn > 0 {
		return time.Duration(token.ExpiresIn) * time.Second
	}
	if v, ok := token.Extra("expires_in").(float64); ok && v > 0 {
		return time.Duration(v) * time.Second
	}
	if !token.Expiry.IsZero() {
		return time.Until(token.Expiry)
	}
	return 0
}
