package main

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sawpanic/optionflight/internal/export"
	simio "github.com/sawpanic/optionflight/internal/io"
	"github.com/sawpanic/optionflight/internal/persistence"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored runs to an XLSX workbook",
		Long: `Export the most recent stored runs to a workbook with a Summary sheet and one
sheet of telemetry records per run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			headers, err := a.repo.Telemetry.ListRuns(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			runs := make([]persistence.Run, 0, len(headers))
			for _, h := range headers {
				run, err := a.repo.Telemetry.GetRun(ctx, h.ID)
				if err != nil {
					return fmt.Errorf("failed to load run %s: %w", h.Name, err)
				}
				if run != nil {
					runs = append(runs, *run)
				}
			}

			var buf bytes.Buffer
			if err := export.WriteXLSX(&buf, runs); err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(opts.cfg.OutputDir, "runs.xlsx")
			}
			if err := simio.WriteFileAtomic(output, buf.Bytes()); err != nil {
				return fmt.Errorf("failed to write workbook: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d runs to %s\n", len(runs), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output XLSX path (default <output-dir>/runs.xlsx)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to export")
	return cmd
}
