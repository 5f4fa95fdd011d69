package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Assistant.
	r.Post("/chat", h.Chat)
	r.Post("/chat/test", h.TestConnection)
	r.Post("/chat/estimate", h.Estimate)

	// Conversation.
	r.Get("/chat/history", h.History)
	r.Delete("/chat/history", h.ClearHistory)
	r.Get("/chat/history/export", h.ExportHistory)
	r.Get("/chat/stats", h.Stats)

	// Providers.
	r.Get("/providers", h.Providers)
	r.Get("/provider", h.Provider)

	// Workspace data.
	r.Get("/analyze", h.Analyze)
	r.Get("/summary", h.Summary)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
