package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/chat"
	"github.com/starford/wunjo/internal/llm"
	"github.com/starford/wunjo/internal/sse"
)

const maxMessageBytes = 64 << 10

// Publisher receives events for connected clients.
type Publisher interface {
	Publish(event sse.Event)
}

// Handler holds API route handlers.
type Handler struct {
	session  *chat.Session
	history  *chat.History
	analyzer *analyzer.Analyzer
	data     chat.DataProvider
	events   Publisher
	loc      *time.Location
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSession enables the assistant endpoints. Without it they answer 503.
func WithSession(s *chat.Session) HandlerOption {
	return func(h *Handler) { h.session = s }
}

// WithEvents publishes chat events to p.
func WithEvents(p Publisher) HandlerOption {
	return func(h *Handler) { h.events = p }
}

// WithLocation sets the time zone of text exports.
func WithLocation(loc *time.Location) HandlerOption {
	return func(h *Handler) { h.loc = loc }
}

// NewHandler creates a new Handler. history, a and data serve the endpoints
// that work without a configured provider.
func NewHandler(history *chat.History, a *analyzer.Analyzer, data chat.DataProvider, opts ...HandlerOption) *Handler {
	h := &Handler{history: history, analyzer: a, data: data, loc: time.Local}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) publish(typ string, data any) {
	if h.events != nil {
		h.events.Publish(sse.Event{Type: typ, Data: data})
	}
}

// requireSession writes 503 and returns false when no provider is configured.
func (h *Handler) requireSession(w http.ResponseWriter) bool {
	if h.session == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("assistant is not configured: set assistant.api_key"))
		return false
	}
	return true
}

func decodeMessage(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return "", false
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("message is required"))
		return "", false
	}
	return msg, true
}

// Chat handles POST /api/chat.
//
//	@Summary		Ask the assistant about the workspace
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ChatRequest	true	"Question"
//	@Success		200		{object}	ChatResponse
//	@Failure		400		{object}	errResponse
//	@Failure		429		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	msg, ok := decodeMessage(w, r)
	if !ok {
		return
	}
	reply, err := h.session.Send(r.Context(), msg)
	if err != nil {
		writeChatError(w, err)
		return
	}
	resp := ChatResponse{
		Reply:      reply.Text,
		Intent:     reply.Intent,
		Confidence: reply.Confidence,
		DataUsed:   reply.DataUsed,
	}
	h.publish(sse.TypeChatReply, map[string]any{"intent": reply.Intent})
	writeJSON(w, http.StatusOK, resp)
}

// TestConnection handles POST /api/chat/test.
//
//	@Summary		Check the configured provider and key
//	@Tags			chat
//	@Produce		json
//	@Success		200	{object}	ConnectionResponse
//	@Failure		502	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chat/test [post]
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	svc := h.session.Service()
	ok, err := svc.TestConnection(r.Context())
	if err != nil {
		writeChatError(w, err)
		return
	}
	info := svc.ProviderInfo()
	writeJSON(w, http.StatusOK, ConnectionResponse{OK: ok, Provider: info.Type, Model: info.Model})
}

// Estimate handles POST /api/chat/estimate.
//
//	@Summary		Estimate the price of a question
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ChatRequest	true	"Question"
//	@Success		200		{object}	EstimateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chat/estimate [post]
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	msg, ok := decodeMessage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, EstimateResponse{
		EstimatedTokens: llm.EstimateTokens(msg),
		Cost:            h.session.Service().EstimateCost(msg),
	})
}

// History handles GET /api/chat/history.
//
//	@Summary		List the stored conversation
//	@Tags			history
//	@Produce		json
//	@Success		200	{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/chat/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	turns, err := h.history.Load(r.Context())
	if err != nil {
		slog.Error("load history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Messages: turns, Limit: h.history.Limit()})
}

// ClearHistory handles DELETE /api/chat/history.
//
//	@Summary		Delete the stored conversation
//	@Tags			history
//	@Success		204	"History cleared"
//	@Security		BearerAuth
//	@Router			/chat/history [delete]
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		slog.Error("clear history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish(sse.TypeHistoryCleared, map[string]string{})
	w.WriteHeader(http.StatusNoContent)
}

// ExportHistory handles GET /api/chat/history/export.
//
//	@Summary		Download the conversation
//	@Tags			history
//	@Produce		json
//	@Produce		plain
//	@Param			format	query	string	false	"Export format"	Enums(json, text)
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chat/history/export [get]
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	format, err := chat.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	turns, err := h.history.Load(r.Context())
	if err != nil {
		slog.Error("load history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out, err := chat.Export(turns, format, h.loc)
	if err != nil {
		slog.Error("export history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	ext, ctype := "json", "application/json; charset=utf-8"
	if format == chat.FormatText {
		ext, ctype = "txt", "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="wunjo-chat-%s.%s"`, time.Now().In(h.loc).Format("2006-01-02"), ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// Stats handles GET /api/chat/stats.
//
//	@Summary		Conversation statistics
//	@Tags			history
//	@Produce		json
//	@Success		200	{object}	chat.Stats
//	@Security		BearerAuth
//	@Router			/chat/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	turns, err := h.history.Load(r.Context())
	if err != nil {
		slog.Error("load history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, chat.ComputeStats(turns))
}

// Providers handles GET /api/providers.
//
//	@Summary		Supported providers with pricing
//	@Tags			providers
//	@Produce		json
//	@Param			budget	query		string	false	"Budget hint"	Enums(free, paid)
//	@Success		200		{object}	ProvidersResponse
//	@Security		BearerAuth
//	@Router			/providers [get]
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProvidersResponse{
		Providers:   llm.Providers(),
		Recommended: llm.Recommend(r.URL.Query().Get("budget")),
	})
}

// Provider handles GET /api/provider.
//
//	@Summary		The configured provider
//	@Tags			providers
//	@Produce		json
//	@Success		200	{object}	chat.ProviderInfo
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/provider [get]
func (h *Handler) Provider(w http.ResponseWriter, _ *http.Request) {
	if !h.requireSession(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.session.Service().ProviderInfo())
}

// Analyze handles GET /api/analyze.
//
//	@Summary		Classify a question without answering it
//	@Tags			workspace
//	@Produce		json
//	@Param			q	query		string	true	"Question"
//	@Success		200	{object}	AnalyzeResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/analyze [get]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.analyzer.Analyze(q))
}

// Summary handles GET /api/summary.
//
//	@Summary		Aggregated tasks, notes and patterns
//	@Tags			workspace
//	@Produce		json
//	@Param			range	query		string	false	"Time range"	Enums(7d, 30d, 90d, all)
//	@Param			tasks	query		bool	false	"Include tasks (default true)"
//	@Param			notes	query		bool	false	"Include notes (default true)"
//	@Param			q		query		string	false	"Note search term"
//	@Success		200		{object}	SummaryResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	need := analyzer.DataNeed{TimeRange: analyzer.Range7d, NeedsTasks: true, NeedsNotes: true}
	if raw := query.Get("range"); raw != "" {
		tr, ok := analyzer.ParseTimeRange(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("range must be one of 7d, 30d, 90d, all"))
			return
		}
		need.TimeRange = tr
	}
	for name, dst := range map[string]*bool{"tasks": &need.NeedsTasks, "notes": &need.NeedsNotes} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(name+" must be a boolean"))
			return
		}
		*dst = v
	}
	if q := strings.TrimSpace(query.Get("q")); q != "" {
		need.SearchTerm = q
		need.Keywords = analyzer.ExtractKeywords(q)
	}

	writeJSON(w, http.StatusOK, h.data.GetData(r.Context(), need))
}
