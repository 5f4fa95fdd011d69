// Package apperr holds the sentinel errors shared across Wunjo packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// Provider error kinds. Adapters classify backend failures into exactly one
// of these and return it wrapped in a *ProviderError.
var (
	ErrInvalidCredentials = errors.New("invalid API key")
	ErrPermissionDenied   = errors.New("API key does not have permission")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrMalformedRequest   = errors.New("invalid request")
	ErrContentFiltered    = errors.New("response blocked by safety filters")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrParseFailure       = errors.New("failed to parse AI response")
	ErrAPI                = errors.New("API error")
)

// ProviderError is a classified failure reported by a model provider.
type ProviderError struct {
	Kind     error
	Provider string
	Status   int
	Detail   string
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind.Error())
	if e.Status != 0 {
		msg += fmt.Sprintf(" (%d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Kind }

// Retryable reports whether err is worth another attempt.
// Credential, permission, request-shape, safety and parse failures cannot
// succeed on retry; everything else (throttling, outages, transport errors)
// can.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, fatal := range []error{
		ErrInvalidCredentials,
		ErrPermissionDenied,
		ErrMalformedRequest,
		ErrContentFiltered,
		ErrUnknownProvider,
		ErrParseFailure,
	} {
		if errors.Is(err, fatal) {
			return false
		}
	}
	return true
}

// KindForStatus maps an HTTP status from a provider to an error kind.
func KindForStatus(status int) error {
	switch status {
	case 400:
		return ErrMalformedRequest
	case 401:
		return ErrInvalidCredentials
	case 403:
		return ErrPermissionDenied
	case 429:
		return ErrRateLimited
	case 500, 503:
		return ErrServiceUnavailable
	default:
		return ErrAPI
	}
}
