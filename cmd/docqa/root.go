package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/docqa/internal/backend"
	"github.com/kalambet/docqa/internal/config"
	"github.com/kalambet/docqa/internal/conversation"
	"github.com/kalambet/docqa/internal/documents"
	"github.com/kalambet/docqa/internal/references"
)

var (
	noColor    bool
	backendURL string
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Upload documents to a Q&A backend and ask questions about them",
	Long: `docqa talks to a document question-answering backend.

Upload PDFs and other documents, then ask questions; every answer comes
with the document chunks it was drawn from.

Examples:
  docqa upload ./q3-report.pdf ./handbook.pdf
  docqa ask "What was revenue in Q3?"
  docqa chat`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend base URL (overrides backend.base_url)")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
}

// session wires one pipeline and one engine to a shared backend client.
type session struct {
	cfg      config.Config
	client   *backend.Client
	pipeline *documents.Pipeline
	engine   *conversation.Engine
	panel    *references.Panel
}

var newSession = func() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if backendURL != "" {
		if err := config.ValidateBaseURL(backendURL); err != nil {
			return nil, err
		}
		cfg.Backend.BaseURL = backendURL
	}

	setupLogging(cfg.Log.Level, os.Stderr)

	opts := []backend.Option{
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithUserAgent("docqa/" + version),
	}
	if cfg.Backend.RateLimit > 0 {
		opts = append(opts, backend.WithRateLimit(cfg.Backend.RateLimit, cfg.Backend.RateBurst))
	}
	client := backend.New(cfg.Backend.BaseURL, opts...)

	panel := references.NewPanel()
	return &session{
		cfg:      cfg,
		client:   client,
		pipeline: documents.NewPipeline(client),
		engine:   conversation.New(client, panel),
		panel:    panel,
	}, nil
}

func setupLogging(level string, w io.Writer) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}
