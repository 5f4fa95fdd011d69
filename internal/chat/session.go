package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/wunjo/internal/llm"
)

// Session is the stateful front of a Service: it feeds stored history into
// each turn and records the exchange afterwards. Turns are serialized.
type Session struct {
	mu      sync.Mutex
	service *Service
	history *History
	now     func() time.Time
	logger  *slog.Logger
}

// NewSession binds service and history.
func NewSession(service *Service, history *History, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{service: service, history: history, now: time.Now, logger: logger}
}

// History returns the session's conversation.
func (s *Session) History() *History { return s.history }

// Service returns the session's Service.
func (s *Session) Service() *Service { return s.service }

// Send runs one turn. A failed turn stores nothing. History persistence
// failures are logged and do not fail the turn.
func (s *Session) Send(ctx context.Context, text string) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, err := s.history.Load(ctx)
	if err != nil {
		s.logger.Warn("chat: history unavailable", slog.String("error", err.Error()))
		prior = nil
	}

	asked := s.now()
	reply, err := s.service.ProcessQuery(ctx, text, Messages(prior))
	if err != nil {
		return nil, err
	}

	if _, err := s.history.Append(ctx,
		NewTurn(llm.RoleUser, text, asked),
		NewTurn(llm.RoleAssistant, reply.Text, s.now()),
	); err != nil {
		s.logger.Warn("chat: history not saved", slog.String("error", err.Error()))
	}
	return reply, nil
}
