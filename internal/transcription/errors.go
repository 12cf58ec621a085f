package transcription

import (
	"fmt"
	"net/http"
)

// Kind classifies a transcription failure for transport-level mapping.
type Kind int

const (
	// KindUnavailable indicates the provider client failed to initialize.
	KindUnavailable Kind = iota + 1
	// KindConfiguration indicates the named recognizer does not exist upstream.
	KindConfiguration
	// KindUpstream indicates the provider reported a call failure.
	KindUpstream
	// KindInternal indicates an unclassified fault during the call.
	KindInternal
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "service_unavailable"
	case KindConfiguration:
		return "configuration_error"
	case KindUpstream:
		return "upstream_error"
	case KindInternal:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Error is a classified transcription failure. Classification happens here,
// inside the client; translation to an HTTP status happens once, at the
// endpoint handler.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (cause: %v)", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the transport status code for the error kind. Every
// provider-side failure surfaces as an internal server error to the caller.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindUnavailable, KindConfiguration, KindUpstream, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
