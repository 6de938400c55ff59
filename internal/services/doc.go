// Package services implements the Spotify Web API reads the collage needs.
//
// # Authorization
//
// [SpotifyService] does not own credentials. Every request reads the bearer token from an
// [auth.Session] first and fails fast with [shared.ErrNotAuthenticated] when the session holds no
// valid token, so no request is ever sent with an expired token.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no valid token in the session
//   - [shared.ErrTokenExpired] : the API answered 401, reauthorization needed
//   - [shared.ErrResourceFetchFailed] : any other non-2xx response, with status and body
//
// # API Mappings
//
// Spotify responses are converted to [Track], keeping only what the collage and the `top`
// command display. The cover URL is the album's largest image by area.
package services
