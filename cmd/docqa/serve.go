package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/docqa/internal/mcpserver"
	"github.com/kalambet/docqa/internal/metrics"
	"github.com/kalambet/docqa/internal/tui"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive document Q&A session",
	Long: `Start an interactive terminal session.

Type a question and press Enter. Commands:
  /upload <path>...   upload files
  /docs               list documents uploaded in this session
  /delete <file-id>   delete a document
  /link <file-id>     show a document's download URL
  /export <path>      write the transcript as JSON lines`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logFile, _ := cmd.Flags().GetString("log-file")
		transcript, _ := cmd.Flags().GetString("transcript")

		s, err := newSession()
		if err != nil {
			return err
		}

		// The terminal belongs to the UI; logs go to a file or nowhere.
		var logOut io.Writer = io.Discard
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer f.Close()
			logOut = f
		}
		setupLogging(s.cfg.Log.Level, logOut)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		err = runWithMetrics(ctx, s.cfg.Metrics.Addr, func(ctx context.Context) error {
			return tui.Run(ctx, s.engine, s.pipeline, s.panel, noColor)
		})
		if err != nil {
			return err
		}

		if transcript != "" {
			w, err := openOutput(transcript)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := writeTranscript(w, s); err != nil {
				return err
			}
			if transcript != "-" {
				printSuccess("Transcript written to %s", transcript)
			}
		}
		return nil
	},
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the Q&A session over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mcpSrv := mcpserver.New(mcpserver.Deps{Pipeline: s.pipeline, Engine: s.engine}, version)
		stdioSrv := server.NewStdioServer(mcpSrv)

		slog.Info("MCP server started (stdio transport)", "backend", s.client.BaseURL())
		return runWithMetrics(ctx, s.cfg.Metrics.Addr, func(ctx context.Context) error {
			err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	},
}

func init() {
	chatCmd.Flags().String("log-file", "", "append logs to this file while the UI is open")
	chatCmd.Flags().String("transcript", "", "write the transcript as JSON lines on exit (- for stdout)")
}

// runWithMetrics runs fn and, when addr is set, the metrics endpoint next to
// it. Both stop when fn returns.
func runWithMetrics(ctx context.Context, addr string, fn func(ctx context.Context) error) error {
	if addr == "" {
		return fn(ctx)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	g.Go(func() error {
		return serveMetrics(gctx, ln)
	})
	return g.Wait()
}

func serveMetrics(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
