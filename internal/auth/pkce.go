package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/desertthunder/vibes/internal/shared"
)

const (
	// VerifierKey is the fixed name the code verifier is stored under between login steps.
	VerifierKey = "pkce_code_verifier"
	// StateKey is the fixed name the OAuth state is stored under between login steps.
	StateKey = "pkce_state"

	MinVerifierLength = 43
	MaxVerifierLength = 128

	// ChallengeMethod is the only code_challenge_method this client sends.
	ChallengeMethod = "S256"

	verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// bytes at or above this value are rejected so every alphabet index is equally likely
	unbiasedCeiling = 256 - 256%len(verifierAlphabet)

	stateBytes = 32
)

// Verifier is the PKCE code verifier held for one login attempt.
type Verifier string

// Challenge is base64url(SHA-256(verifier)) without padding.
type Challenge string

var randReader io.Reader = rand.Reader

// GenerateVerifier returns a verifier of [MaxVerifierLength] unreserved characters.
func GenerateVerifier() (Verifier, error) {
	return GenerateVerifierN(MaxVerifierLength)
}

// GenerateVerifierN returns a verifier of n characters from [A-Za-z0-9]. n must be within [43, 128].
func GenerateVerifierN(n int) (Verifier, error) {
	if n < MinVerifierLength || n > MaxVerifierLength {
		return "", fmt.Errorf("%w: verifier length %d outside [%d, %d]", shared.ErrInvalidArgument, n, MinVerifierLength, MaxVerifierLength)
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(randReader, buf); err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrSecureRandomUnavailable, err)
		}
		for _, b := range buf {
			if int(b) >= unbiasedCeiling {
				continue
			}
			out = append(out, verifierAlphabet[int(b)%len(verifierAlphabet)])
			if len(out) == n {
				break
			}
		}
	}

	return Verifier(out), nil
}

// DeriveChallenge computes the S256 code challenge for v.
func DeriveChallenge(v Verifier) Challenge {
	sum := sha256.Sum256([]byte(v))
	return Challenge(base64.RawURLEncoding.EncodeToString(sum[:]))
}

// GenerateState returns a random base64url value for the OAuth state parameter.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrSecureRandomUnavailable, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// IsUnreserved reports whether v only uses the RFC 7636 unreserved characters and has a valid length.
func IsUnreserved(v Verifier) bool {
	if len(v) < MinVerifierLength || len(v) > MaxVerifierLength {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_', c == '~':
		default:
			return false
		}
	}
	return true
}
