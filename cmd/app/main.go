package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/wunjo/internal"
	"github.com/starford/wunjo/internal/chat"
	"github.com/starford/wunjo/internal/llm"
	pkgconfig "github.com/starford/wunjo/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// cliOptions keeps stdout for command output; logs go to stderr and are
// silenced unless --verbose is set.
func cliOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	var logOut io.Writer = io.Discard
	if cmd.Bool("verbose") {
		logOut = os.Stderr
	}
	return []internal.Option{internal.WithConfig(cfg), internal.WithLogOutput(logOut)}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func ask(ctx context.Context, cmd *cli.Command) error {
	question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if question == "" {
		return errors.New("usage: wunjo ask <question>")
	}
	opts, err := cliOptions(cmd)
	if err != nil {
		return err
	}

	reply, err := internal.Ask(ctx, question, opts...)
	if err != nil {
		var ce *chat.Error
		if errors.As(err, &ce) {
			return fmt.Errorf("%s (%s)", ce.Message, ce.Category)
		}
		return err
	}

	if cmd.Bool("raw") {
		_, err = fmt.Fprintln(os.Stdout, reply.Text)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	out, err := r.Render(reply.Text)
	if err != nil {
		return fmt.Errorf("render reply: %w", err)
	}
	_, err = fmt.Fprint(os.Stdout, out)
	return err
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func providers(ctx context.Context, cmd *cli.Command) error {
	rec := llm.Recommend(cmd.String("budget"))
	for _, p := range llm.Providers() {
		fmt.Fprintf(os.Stdout, "%s (%s)\n  %s\n  pricing: %s in / %s out", p.Name, p.ID, p.Description, p.Pricing.Input, p.Pricing.Output)
		if p.FreeTier != "" {
			fmt.Fprintf(os.Stdout, ", free tier %s", p.FreeTier)
		}
		fmt.Fprintf(os.Stdout, "\n  key: %s\n", p.SignupURL)
		for _, m := range p.Models {
			marker := " "
			if m.ID == p.DefaultModel {
				marker = "*"
			}
			fmt.Fprintf(os.Stdout, "  %s %s (%s, %s)\n", marker, m.ID, m.Name, m.Speed)
		}
	}
	fmt.Fprintf(os.Stdout, "\nRecommended: %s / %s (%s)\n", rec.Provider, rec.Model, rec.Reason)

	if !cmd.Bool("test") {
		return nil
	}
	opts, err := cliOptions(cmd)
	if err != nil {
		return err
	}
	info, err := internal.TestConnection(ctx, opts...)
	if err != nil {
		return fmt.Errorf("connection test: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Connection OK: %s / %s\n", info.Type, info.Model)
	return nil
}

func history(ctx context.Context, cmd *cli.Command) error {
	opts, err := cliOptions(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("clear") {
		if err := internal.ClearHistory(ctx, opts...); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Conversation cleared.")
		return nil
	}
	format, err := chat.ParseExportFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	out, err := internal.ExportHistory(ctx, format, opts...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, out)
	return err
}

func initWorkspace(ctx context.Context, cmd *cli.Command) error {
	opts, err := cliOptions(cmd)
	if err != nil {
		return err
	}
	written, err := internal.Init(ctx, opts...)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		fmt.Fprintln(os.Stdout, "Workspace already has the sample files.")
		return nil
	}
	for _, p := range written {
		fmt.Fprintf(os.Stdout, "created %s\n", p)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "wunjo",
		Usage:  "AI assistant over your Markdown notes and kanban boards",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Write logs to stderr in CLI commands",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and workspace watcher (default)",
				Action: serve,
			},
			{
				Name:      "ask",
				Usage:     "Ask the assistant a question",
				ArgsUsage: "<question>",
				Action:    ask,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "raw", Usage: "Print the reply without Markdown rendering"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: mcp,
			},
			{
				Name:   "providers",
				Usage:  "List supported model providers",
				Action: providers,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "budget", Usage: "free or paid", Value: "free"},
					&cli.BoolFlag{Name: "test", Usage: "Test the configured provider and key"},
				},
			},
			{
				Name:   "history",
				Usage:  "Print or clear the stored conversation",
				Action: history,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Usage: "json or text", Value: "text"},
					&cli.BoolFlag{Name: "clear", Usage: "Delete the stored conversation"},
				},
			},
			{
				Name:   "init",
				Usage:  "Write a sample workspace",
				Action: initWorkspace,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
