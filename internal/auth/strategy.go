package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/vibes/internal/shared"
	"golang.org/x/oauth2"
)

// Flow names accepted by [NewStrategy].
const (
	FlowPKCE     = "pkce"
	FlowImplicit = "implicit"
)

// Strategy is one way of obtaining an access token through a browser redirect.
type Strategy interface {
	// Name returns the flow name ("pkce" or "implicit").
	Name() string

	// BeginLogin prepares a login attempt and returns the URL the browser must open.
	BeginLogin(ctx context.Context) (string, error)

	// HasResponse reports whether redirect carries an authorization response (success or error).
	HasResponse(redirect *url.URL) bool

	// CompleteLogin consumes the redirect and stores the access token in the session.
	// It returns false with a nil error when the redirect carries no authorization response.
	CompleteLogin(ctx context.Context, redirect *url.URL) (bool, error)
}

// Params describes the OAuth client registration shared by all strategies.
type Params struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	AuthURL     string
	TokenURL    string
	// HTTPClient is used for the token exchange. Nil uses [http.DefaultClient].
	HTTPClient *http.Client
}

func (p Params) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    p.ClientID,
		RedirectURL: p.RedirectURI,
		Scopes:      p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthURL,
			TokenURL:  p.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (p Params) validate() error {
	switch {
	case p.ClientID == "":
		return fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	case p.RedirectURI == "":
		return fmt.Errorf("%w: redirect_uri is required", shared.ErrInvalidConfig)
	case p.AuthURL == "":
		return fmt.Errorf("%w: auth_url is required", shared.ErrInvalidConfig)
	}
	return nil
}

// NewStrategy selects a strategy by flow name.
func NewStrategy(flow string, params Params, store VerifierStore, session *Session) (Strategy, error) {
	switch strings.ToLower(flow) {
	case FlowPKCE, "":
		return NewPKCEStrategy(params, store, session)
	case FlowImplicit:
		return NewImplicitStrategy(params, store, session)
	default:
		return nil, fmt.Errorf("%w: unknown flow %q", shared.ErrInvalidArgument, flow)
	}
}

// authorizationError converts an "error" redirect parameter into [shared.ErrAuthorizationDenied].
func authorizationError(values url.Values) error {
	code := values.Get("error")
	if code == "" {
		return nil
	}
	if desc := values.Get("error_description"); desc != "" {
		return fmt.Errorf("%w: %s - %s", shared.ErrAuthorizationDenied, code, desc)
	}
	return fmt.Errorf("%w: %s", shared.ErrAuthorizationDenied, code)
}

// checkState compares the returned state with the one stored at BeginLogin.
//
// A response with no stored state has no login attempt to belong to and is rejected.
func checkState(ctx context.Context, store VerifierStore, got string) error {
	want, ok, err := store.Get(ctx, StateKey)
	if err != nil {
		return fmt.Errorf("failed to read stored state: %w", err)
	}
	if !ok || want == "" {
		return fmt.Errorf("%w: no login attempt is in progress", shared.ErrStateMismatch)
	}
	if got != want {
		return fmt.Errorf("%w: the redirect does not belong to the current login attempt", shared.ErrStateMismatch)
	}
	return nil
}

// exchangeError classifies a failed code exchange.
func exchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		detail := retrieveErr.ErrorCode
		if retrieveErr.ErrorDescription != "" {
			detail = fmt.Sprintf("%s - %s", detail, retrieveErr.ErrorDescription)
		}
		if detail == "" {
			detail = strings.TrimSpace(string(retrieveErr.Body))
		}
		return fmt.Errorf("%w: status %d: %s", shared.ErrTokenExchangeRejected, status, detail)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("token request failed: %w", err)
	}

	return fmt.Errorf("%w: %v", shared.ErrTokenExchangeRejected, err)
}
