package auth

import (
	"crypto/subtle"
	"errors"
	"log/slog"
)

// HeaderName is the request header carrying the shared secret.
const HeaderName = "X-API-Key"

var (
	// ErrMissingKey indicates the request carried no X-API-Key header.
	ErrMissingKey = errors.New("missing API key")
	// ErrInvalidKey indicates the supplied key does not match the configured secret.
	ErrInvalidKey = errors.New("invalid API key")
)

// Validator checks caller-supplied API keys against the configured secret.
// It is safe for concurrent use; the secret is immutable after construction.
type Validator struct {
	secret []byte
	logger *slog.Logger
}

// NewValidator creates a validator for the given shared secret.
func NewValidator(secret string, logger *slog.Logger) *Validator {
	return &Validator{
		secret: []byte(secret),
		logger: logger,
	}
}

// Validate decides accept/reject for a caller-supplied header value.
// An empty value means the header was absent. The attempted key is never
// logged.
func (v *Validator) Validate(headerValue string) error {
	if headerValue == "" {
		v.logger.Warn("API key validation failed: missing X-API-Key header")
		return ErrMissingKey
	}

	if subtle.ConstantTimeCompare([]byte(headerValue), v.secret) != 1 {
		v.logger.Warn("API key validation failed: invalid key provided")
		return ErrInvalidKey
	}

	v.logger.Debug("API key validation successful")
	return nil
}
