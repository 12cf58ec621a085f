package auth

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func newTestValidator(secret string) *Validator {
	return NewValidator(secret, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		secret      string
		headerValue string
		expectErr   error
	}{
		{
			name:        "matching key",
			secret:      "s3cret",
			headerValue: "s3cret",
			expectErr:   nil,
		},
		{
			name:        "missing header",
			secret:      "s3cret",
			headerValue: "",
			expectErr:   ErrMissingKey,
		},
		{
			name:        "wrong key",
			secret:      "s3cret",
			headerValue: "guess",
			expectErr:   ErrInvalidKey,
		},
		{
			name:        "prefix of secret",
			secret:      "s3cret",
			headerValue: "s3cre",
			expectErr:   ErrInvalidKey,
		},
		{
			name:        "secret plus suffix",
			secret:      "s3cret",
			headerValue: "s3cret ",
			expectErr:   ErrInvalidKey,
		},
		{
			name:        "first byte differs",
			secret:      "s3cret",
			headerValue: "x3cret",
			expectErr:   ErrInvalidKey,
		},
		{
			name:        "last byte differs",
			secret:      "s3cret",
			headerValue: "s3crex",
			expectErr:   ErrInvalidKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(tt.secret)
			err := v.Validate(tt.headerValue)
			if !errors.Is(err, tt.expectErr) {
				t.Errorf("expected %v, got %v", tt.expectErr, err)
			}
		})
	}
}

func TestValidateErrorDoesNotEchoKey(t *testing.T) {
	v := newTestValidator("s3cret")

	err := v.Validate("attempted-key-value")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := err.Error(); got != "invalid API key" {
		t.Errorf("error message must not include the attempted key, got %q", got)
	}
}
