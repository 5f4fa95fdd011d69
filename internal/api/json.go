package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/wunjo/internal/chat"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error    string        `json:"error"`
	Category chat.Category `json:"category,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps an assistant failure category to an HTTP status.
func statusFor(c chat.Category) int {
	switch c {
	case chat.CategoryInvalidCredentials:
		return http.StatusBadGateway
	case chat.CategoryRateLimited:
		return http.StatusTooManyRequests
	case chat.CategoryServiceUnavailable:
		return http.StatusServiceUnavailable
	case chat.CategoryContentFiltered:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeChatError renders an assistant failure with its category.
func writeChatError(w http.ResponseWriter, err error) {
	var ce *chat.Error
	if !errors.As(err, &ce) {
		ce = &chat.Error{Category: chat.CategoryOf(err), Message: err.Error(), Err: err}
	}
	writeJSON(w, statusFor(ce.Category), errResponse{Error: ce.Message, Category: ce.Category})
}
