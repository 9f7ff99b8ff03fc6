// Package cmd defines and implements the CLI commands for the snapshot executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/feed-snapshot/internal/app"
	"github.com/JakeFAU/feed-snapshot/internal/config"
	"github.com/JakeFAU/feed-snapshot/internal/logging"
	"github.com/JakeFAU/feed-snapshot/internal/snapshot"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Orchestrator() *snapshot.Orchestrator
	Ledger() app.Ledger
	Ready(ctx context.Context) error
}

// newApp is the application factory. Tests replace it to inject collaborators.
var newApp = func(ctx context.Context, path string) (App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logging.Sync(logger)
		return nil, err
	}
	return a, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Captures dated snapshots of RSS feed sections.",
		Long: `snapshot fetches every configured section of a news provider's RSS feed,
converts each one to a JSON document, and writes them together as a single
date-keyed record. A run either stores every section or nothing at all.`,
		SilenceUsage: true,

		// Builds the services after flags are parsed and before the subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			closeApp(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults plus SNAPSHOT_* environment when empty)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// resolveApp returns the App injected by the root command.
func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// closeApp releases the App attached to cmd, if any. Close is idempotent, so
// calling this after PersistentPostRun is harmless.
func closeApp(cmd *cobra.Command) {
	if cmd == nil || cmd.Context() == nil {
		return
	}
	if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
		appInstance.Close()
		_ = logging.Sync(appInstance.Logger())
	}
}

// execute runs the root command with args and closes the App even when the
// subcommand fails, which skips cobra's post-run hooks.
func execute(ctx context.Context, root *cobra.Command, args []string) error {
	root.SetArgs(args)
	executed, err := root.ExecuteContextC(ctx)
	if err != nil {
		closeApp(executed)
	}
	return err
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, newRootCmd(), os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}
