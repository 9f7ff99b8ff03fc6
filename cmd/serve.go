package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/feed-snapshot/internal/api"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates the 'serve' subcommand, which exposes runs over HTTP.
func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the snapshot HTTP API",
		Long: `Starts an HTTP server where POST /v1/runs triggers a snapshot run and
GET /v1/runs lists recent runs. Health, readiness and Prometheus metrics are
served alongside. The server stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeCommand(cmd, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT and server.port)")
	return cmd
}

func runServeCommand(cmd *cobra.Command, flagPort int) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	port, err := resolvePort(flagPort, os.Getenv("PORT"), appInstance.Config().Server.Port)
	if err != nil {
		return err
	}

	apiServer := api.NewServer(appInstance.Orchestrator(), api.Options{
		Runs:  appInstance.Ledger(),
		Ready: appInstance.Ready,
	}, logger.Named("api"))

	var lc net.ListenConfig
	ln, err := lc.Listen(cmd.Context(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	return serveHTTP(cmd.Context(), ln, apiServer.Handler(), logger)
}

// resolvePort picks the listen port: the flag, then the PORT variable, then config.
func resolvePort(flagPort int, env string, cfgPort int) (int, error) {
	port := cfgPort
	if env != "" {
		p, err := strconv.Atoi(env)
		if err != nil {
			return 0, fmt.Errorf("invalid PORT %q: %w", env, err)
		}
		port = p
	}
	if flagPort != 0 {
		port = flagPort
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

// serveHTTP serves handler on ln until ctx is cancelled, then shuts down gracefully.
func serveHTTP(ctx context.Context, ln net.Listener, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
