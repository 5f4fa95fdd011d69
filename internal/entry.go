// Package internal wires Wunjo's components together and runs them.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/wunjo/internal/api"
	"github.com/starford/wunjo/internal/index"
	"github.com/starford/wunjo/internal/sse"
)

const shutdownTimeout = 10 * time.Second

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// Run serves the HTTP API and keeps the index in step with the workspace
// until ctx is cancelled or the process is signalled.
func Run(ctx context.Context, opts ...Option) error {
	c, err := build(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	broker := sse.NewBroker(sse.WithKeepAlive(30 * time.Second))
	defer broker.Close()

	addr := c.cfg.App.HTTP.Address()
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.httpHandler(broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := index.Watch(gCtx, c.db, c.store, c.cfg.Workspace.Path, c.logger, broker.PublishFileEvent)
		if err != nil {
			c.logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		c.logger.Info("Listening", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sigCtx, stop := signal.NotifyContext(gCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-sigCtx.Done()
		c.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("http shutdown", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		c.logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	c.logger.Info("Server stopped")
	return nil
}

// httpHandler mounts the API under /api next to the unauthenticated health
// probes.
func (c *components) httpHandler(broker *sse.Broker) http.Handler {
	handlerOpts := []api.HandlerOption{api.WithEvents(broker)}
	if c.session != nil {
		handlerOpts = append(handlerOpts, api.WithSession(c.session))
	} else {
		c.logger.Warn("Assistant disabled: assistant.api_key is empty")
	}
	h := api.NewHandler(c.history, c.analyzer, c.agg, handlerOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, health{Status: "ok"})
	})
	r.Get("/health/ready", c.ready)
	r.Mount("/api", api.NewRouter(h, c.cfg.Auth.AuthEnabled(), c.cfg.Auth.Token, broker))
	return r
}

type health struct {
	Status    string         `json:"status"`
	Records   map[string]int `json:"records,omitempty"`
	Assistant string         `json:"assistant,omitempty"`
}

// ready reports the index record counts and whether a provider is configured.
// An unreadable index makes the instance not ready; a disabled assistant
// does not.
func (c *components) ready(w http.ResponseWriter, _ *http.Request) {
	counts, err := c.db.Counts()
	if err != nil {
		c.logger.Warn("readiness check failed", slog.String("error", err.Error()))
		writeHealth(w, http.StatusServiceUnavailable, health{Status: "index unavailable"})
		return
	}
	assistant := "disabled"
	if c.session != nil {
		assistant = string(c.session.Service().ProviderInfo().Type)
	}
	writeHealth(w, http.StatusOK, health{Status: "ok", Records: counts, Assistant: assistant})
}

func writeHealth(w http.ResponseWriter, status int, body health) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
