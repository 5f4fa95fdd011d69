package chat

import (
	"errors"

	"github.com/starford/wunjo/internal/apperr"
)

// Category groups failures by what the user can do about them.
type Category string

const (
	CategoryInvalidCredentials Category = "invalid_credentials"
	CategoryRateLimited        Category = "rate_limited"
	CategoryServiceUnavailable Category = "service_unavailable"
	CategoryContentFiltered    Category = "content_filtered"
	CategoryGeneric            Category = "generic"
)

// Error is a failed turn with user-facing copy. The cause stays reachable
// through Unwrap.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// classify maps err to a user-facing Error by its apperr kind.
func classify(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	e := &Error{Category: CategoryGeneric, Message: err.Error(), Err: err}
	switch {
	case errors.Is(err, apperr.ErrInvalidCredentials):
		e.Category, e.Message = CategoryInvalidCredentials, "Invalid API key. Please check your configuration."
	case errors.Is(err, apperr.ErrPermissionDenied):
		e.Category, e.Message = CategoryInvalidCredentials, "Your API key does not have permission to use this model."
	case errors.Is(err, apperr.ErrRateLimited):
		e.Category, e.Message = CategoryRateLimited, "Rate limit exceeded. Please wait a moment and try again."
	case errors.Is(err, apperr.ErrServiceUnavailable):
		e.Category, e.Message = CategoryServiceUnavailable, "AI service is temporarily unavailable. Please try again later."
	case errors.Is(err, apperr.ErrContentFiltered):
		e.Category, e.Message = CategoryContentFiltered, "The AI provider declined to answer because of its content safety policy. Try rephrasing your question."
	}
	return e
}

// CategoryOf returns the category of err, or CategoryGeneric.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	return classify(err).Category
}
