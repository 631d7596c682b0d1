package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/piisweep-go/internal/api"
	"github.com/gonkalabs/piisweep-go/internal/sanitize"
	"github.com/gonkalabs/piisweep-go/internal/sanitize/piiclassifier"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		noRedact bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an HTTP gateway that holds the API key server-side",
		Long: `Run an HTTP gateway exposing:

  GET  /health
  POST /v1/strip    {"text": "...", "types": ["email"]}
  POST /v1/detect   same body as strip
  POST /v1/redact   reversible tokens, disabled with --no-redact

The gateway shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			var san *sanitize.Sanitizer
			if !noRedact {
				san = sanitize.New(a.logger, piiclassifier.New(a.client, a.cfg.Types...))
			}

			mux := http.NewServeMux()
			api.New(a.client, san, a.cfg.Types, a.logger).Register(mux)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			a.logger.Info("starting gateway",
				"addr", ln.Addr().String(),
				"base_url", a.client.BaseURL(),
				"redact", san != nil,
			)
			return serve(ctx, ln, mux, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT)")
	cmd.Flags().BoolVar(&noRedact, "no-redact", false, "disable the /v1/redact endpoint")
	return cmd
}

// serve runs an HTTP server on ln until ctx is cancelled, then shuts it
// down gracefully.
func serve(ctx context.Context, ln net.Listener, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
