package auth

import (
	"errors"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/apperr"
)

var (
	ErrMissingSigningKey  = errors.New("signing key is not configured")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnknownSubject     = errors.New("unknown subject")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrMalformedDigest    = errors.New("malformed password digest")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
)

// PleaseAuthenticate is the single message every gate rejection answers with.
const PleaseAuthenticate = "Please authenticate."

// unauthenticated classifies a gate failure. The cause is kept for logs only.
func unauthenticated(err error) error {
	return apperr.Wrap(err, apperr.KindUnauthenticated, PleaseAuthenticate)
}
