// Package auth drives the Spotify login and owns the in-memory token.
//
// # PKCE
//
// [GenerateVerifier] draws a 128 character verifier from crypto/rand. [DeriveChallenge] maps it to
// base64url(SHA-256(verifier)) without padding. A broken random source fails the login with
// [shared.ErrSecureRandomUnavailable]; there is no weaker fallback.
//
// # Strategies
//
// A [Strategy] begins a login (returns the /authorize URL) and completes it from the redirect the
// browser lands on. [PKCEStrategy] uses the authorization code flow and persists the verifier in a
// [VerifierStore] under [VerifierKey] so it survives the round trip. [ImplicitStrategy] reads the
// token straight from the redirect fragment. [NewStrategy] selects one by name.
//
// # Controller
//
// [Controller] tracks one login attempt through
//
//	Idle → AwaitingRedirect → ExchangingCode → Authenticated | Failed
//
// A redirect without an authorization response is not a failure: the controller reports false
// and returns to Idle.
//
// # Session
//
// [Session] holds the access token and its absolute expiry. [Session.IsValid] is true only while
// the clock is strictly before the expiry. API clients call [Session.Bearer], which fails with
// [shared.ErrNotAuthenticated] instead of handing out a stale token. Nothing is persisted.
package auth
