package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Login errors
	ErrSecureRandomUnavailable = fmt.Errorf("secure random source unavailable")
	ErrMissingVerifier         = fmt.Errorf("missing code verifier, restart the login")
	ErrTokenExchangeRejected   = fmt.Errorf("token exchange rejected")
	ErrAuthorizationDenied     = fmt.Errorf("authorization denied")
	ErrStateMismatch           = fmt.Errorf("state parameter mismatch")
	ErrTimeout                 = fmt.Errorf("operation timed out")

	// Credential errors raised by API collaborators
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// API and asset errors
	ErrResourceFetchFailed = fmt.Errorf("resource fetch failed")
	ErrAssetLoadFailed     = fmt.Errorf("asset load failed")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
