// Command authbridge runs the stateless GitHub OAuth bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/juristech/authbridge"
	"github.com/juristech/authbridge/instrumentation"
)

// version can be set during build with -ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "authbridge",
		Short: "Stateless OAuth bridge in front of GitHub",
		Long: `authbridge presents a Keycloak-shaped authorization surface in front
of GitHub OAuth. It redirects login attempts to GitHub, exchanges the
returned code for an access token, resolves the user's identity, and
mints a signed 24-hour session credential. Sessions are stateless:
there is no server-side session store.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		listenAddr    string
		logLevel      string
		enableMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge HTTP server",
		Long: `Starts the HTTP server. Configuration is read from the environment
(AUTHBRIDGE_* and GITHUB_* variables); flags override individual values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), listenAddr, logLevel, enableMetrics)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides AUTHBRIDGE_LISTEN_ADDR)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&enableMetrics, "metrics", false, "enable OpenTelemetry instrumentation")

	return cmd
}

func runServe(ctx context.Context, listenAddr, logLevel string, enableMetrics bool) error {
	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	cfg, err := authbridge.LoadFromEnv()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:    "authbridge",
		ServiceVersion: version,
		Enabled:        enableMetrics,
	})
	if err != nil {
		return fmt.Errorf("init instrumentation: %w", err)
	}

	handler, err := authbridge.NewHandler(cfg, logger, authbridge.WithInstrumentation(inst))
	if err != nil {
		return err
	}
	defer handler.Close()

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler.HTTPHandler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting OAuth bridge",
			"addr", cfg.Server.ListenAddr,
			"public_base_url", cfg.Server.PublicBaseURL,
			"auth_enabled", cfg.AuthEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := inst.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Instrumentation shutdown failed", "error", err)
	}
	return nil
}

// newLogger builds a text slog logger at the requested level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
