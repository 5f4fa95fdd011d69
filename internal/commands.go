package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/chat"
	"github.com/starford/wunjo/internal/index"
	"github.com/starford/wunjo/internal/mcpserver"
)

// ErrAssistantDisabled is returned by commands that need a provider when
// assistant.api_key is empty.
var ErrAssistantDisabled = errors.New("assistant is not configured: set assistant.api_key")

// Ask runs one assistant turn against the workspace and records it in the
// stored conversation.
func Ask(ctx context.Context, question string, opts ...Option) (*chat.Reply, error) {
	c, err := build(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if c.session == nil {
		return nil, ErrAssistantDisabled
	}
	return c.session.Send(ctx, question)
}

// TestConnection checks the configured provider and key.
func TestConnection(ctx context.Context, opts ...Option) (chat.ProviderInfo, error) {
	c, err := build(ctx, opts)
	if err != nil {
		return chat.ProviderInfo{}, err
	}
	defer c.Close()

	if c.session == nil {
		return chat.ProviderInfo{}, ErrAssistantDisabled
	}
	svc := c.session.Service()
	ok, err := svc.TestConnection(ctx)
	if err != nil {
		return svc.ProviderInfo(), err
	}
	if !ok {
		return svc.ProviderInfo(), fmt.Errorf("%w: unexpected reply to connection test", apperr.ErrAPI)
	}
	return svc.ProviderInfo(), nil
}

// ServeMCP serves the MCP tools on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	c, err := build(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.session == nil {
		c.logger.Warn("Assistant disabled: ask_assistant will report an error")
	}
	c.logger.Info("MCP server starting on stdio")
	return mcpserver.New(c.session, c.analyzer, c.agg).ServeStdio()
}

// ExportHistory renders the stored conversation.
func ExportHistory(ctx context.Context, format chat.ExportFormat, opts ...Option) (string, error) {
	c, err := build(ctx, opts)
	if err != nil {
		return "", err
	}
	defer c.Close()

	turns, err := c.history.Load(ctx)
	if err != nil {
		return "", err
	}
	return chat.Export(turns, format, time.Local)
}

// ClearHistory deletes the stored conversation.
func ClearHistory(ctx context.Context, opts ...Option) error {
	c, err := build(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.history.Clear(ctx); err != nil {
		return err
	}
	c.logger.Info("Conversation cleared")
	return nil
}

// sampleWorkspace is written by Init into an empty workspace.
var sampleWorkspace = map[string]string{
	"boards/personal.yaml": `name: Personal
lists:
  - name: To Do
    cards:
      - title: Book dentist appointment
        tags: [health]
      - title: Plan weekend trip
        tags: [travel, {name: family, color: green}]
  - name: In Progress
    cards:
      - title: Read "Deep Work"
        tags: [reading]
  - name: Done
    cards:
      - title: Renew passport
        tags: [travel]
`,
	"notes/ideas/side-projects.md": `---
title: Side project ideas
tags: [ideas]
pinned: true
---
- A CLI that summarizes my week #productivity
- Recipe tracker
`,
	"notes/journal.md": `# Journal

Worked on the quarterly report today. Felt focused in the morning. #productivity
`,
}

// Init writes a sample workspace. Existing files are left untouched.
func Init(ctx context.Context, opts ...Option) ([]string, error) {
	c, err := build(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	paths := make([]string, 0, len(sampleWorkspace))
	for p := range sampleWorkspace {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var written []string
	for _, p := range paths {
		if _, err := c.store.Read(p); err == nil {
			continue
		}
		if err := c.store.Write(p, []byte(sampleWorkspace[p])); err != nil {
			return written, fmt.Errorf("init: write %s: %w", p, err)
		}
		written = append(written, p)
		c.logger.Info("Sample file written", slog.String("path", p))
	}
	if len(written) > 0 {
		if err := index.Sync(c.db, c.store, c.logger); err != nil {
			return written, err
		}
	}
	return written, nil
}
