package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	simio "github.com/sawpanic/optionflight/internal/io"
	"github.com/sawpanic/optionflight/internal/render"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		title  string
	)

	cmd := &cobra.Command{
		Use:   "render <log.jsonl>",
		Short: "Render a telemetry log into an HTML viewer",
		Long: `Render a JSONL telemetry log into a self-contained HTML viewer using the
configured envelope. Without --output the viewer is written next to the log.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := args[0]
			records, err := simio.LoadLog(logPath)
			if err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(logPath, filepath.Ext(logPath)) + ".html"
			}
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(logPath), filepath.Ext(logPath))
			}

			renderer, err := render.NewRenderer(title)
			if err != nil {
				return err
			}
			if err := renderer.RenderToFile(output, records, opts.cfg.Envelope); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Visualization saved to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output HTML path")
	cmd.Flags().StringVar(&title, "title", "", "Viewer title (defaults to the log name)")
	return cmd
}
