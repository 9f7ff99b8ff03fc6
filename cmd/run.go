package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/feed-snapshot/internal/snapshot"
)

// newRunCmd creates the 'run' subcommand, which captures one snapshot and exits.
func newRunCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Captures one snapshot of every configured section",
		Long: `Fetches all configured feed sections concurrently and writes them as one
record keyed by today's date. Nothing is written if any section fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRunCommand(cmd, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run report as JSON")
	return cmd
}

func runRunCommand(cmd *cobra.Command, asJSON bool) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	report, err := appInstance.Orchestrator().Run(cmd.Context())
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		var stageErr *snapshot.StageError
		if errors.As(err, &stageErr) {
			fields = append(fields, zap.String("stage", string(stageErr.Stage)), zap.String("section", stageErr.Section))
		}
		logger.Error("snapshot run failed", fields...)
		return fmt.Errorf("snapshot run: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(cmd.OutOrStdout(), report)
}

func printReport(w io.Writer, report snapshot.Report) error {
	if _, err := fmt.Fprintf(w, "run %s wrote %s (%s)\n", report.RunID, report.Path, report.Ack.URI); err != nil {
		return err
	}
	for _, s := range report.Sections {
		if _, err := fmt.Fprintf(w, "  %-28s %s\n", s.Section, s.URL); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "digest %s\n", report.Digest)
	return err
}
