// Package repositories implements SQLite persistence for values that must outlive a single
// process during a login.
//
// Key Implementations:
//   - [VerifierRepository] : the [auth.VerifierStore] backed by the session_values table
//
// Entries carry an updated_at timestamp; reads treat entries older than the repository TTL as
// missing and [VerifierRepository.Purge] removes them.
package repositories
