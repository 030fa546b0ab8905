package schemas

import (
	"errors"
	"fmt"
)

// FailureKind classifies the pipeline's failure taxonomy. The routing layer
// maps everything except per-item batch failures to a server-side failure
// status.
type FailureKind string

const (
	// KindAuthentication: bad credentials or the login UI was unreachable
	// or changed shape. Not retried automatically.
	KindAuthentication FailureKind = "authentication_failure"
	// KindTokenCapture: login appeared to succeed but no bearer token (or
	// the required session cookie) was ever observed.
	KindTokenCapture FailureKind = "token_capture_failure"
	// KindSessionExpired: the cached session was rejected twice in a row,
	// once before and once after a forced re-authentication.
	KindSessionExpired FailureKind = "session_expired"
	// KindUpstream: non-auth HTTP failure or malformed payload.
	KindUpstream FailureKind = "upstream_error"
	// KindExtraction: an expected page region never appeared.
	KindExtraction FailureKind = "extraction_failure"
)

// Failure is the typed error surfaced by the session manager, API client and
// extractors. It wraps the underlying cause so callers can still errors.Is
// through it.
type Failure struct {
	Kind     FailureKind
	Provider string
	Msg      string
	Err      error
}

func (f *Failure) Error() string {
	s := fmt.Sprintf("%s: %s: %s", f.Provider, f.Kind, f.Msg)
	if f.Err != nil {
		s += ": " + f.Err.Error()
	}
	return s
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure builds a Failure for the given provider and kind.
func NewFailure(kind FailureKind, provider, msg string, cause error) *Failure {
	return &Failure{Kind: kind, Provider: provider, Msg: msg, Err: cause}
}

// IsKind reports whether err (or anything it wraps) is a Failure of the
// given kind.
func IsKind(err error, kind FailureKind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}
