package stt

import (
	"errors"
	"fmt"
)

// Kind classifies a transcription failure so callers can react without
// inspecting backend-specific error strings.
type Kind int

const (
	// KindUnknown is the zero value for unclassified errors.
	KindUnknown Kind = iota

	// KindAudioAccessDenied means the capture device refused access.
	KindAudioAccessDenied

	// KindModelUnavailable means the model could not be loaded or the
	// backend is not compiled in.
	KindModelUnavailable

	// KindInvalidAudio means the input samples were malformed.
	KindInvalidAudio

	// KindInputTooLarge means the clip exceeds what the backend accepts.
	KindInputTooLarge

	// KindInference means the model failed while decoding.
	KindInference

	// KindEntitlementDenied means a hosted backend rejected the caller's
	// credentials or quota.
	KindEntitlementDenied
)

// String returns a short stable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindAudioAccessDenied:
		return "audio access denied"
	case KindModelUnavailable:
		return "model unavailable"
	case KindInvalidAudio:
		return "invalid audio"
	case KindInputTooLarge:
		return "input too large"
	case KindInference:
		return "inference failed"
	case KindEntitlementDenied:
		return "entitlement denied"
	default:
		return "unknown error"
	}
}

// Error is a classified transcription error. Op names the operation
// that failed, in "backend.action" form.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error wrapping a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. A nil err returns nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification from err, or KindUnknown when err
// carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
