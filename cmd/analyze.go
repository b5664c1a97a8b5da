package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edalens/internal/pipeline"
	"github.com/KaramelBytes/edalens/internal/utils"
)

var (
	anaFlags      analysisFlags
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a CSV/TSV/XLSX file and produce an EDA report",
	Example: `  edalens analyze sales.csv
  edalens analyze sales.xlsx --sheet Q1 --format html -o q1.html
  edalens analyze sales.csv --no-insights --format json
  edalens analyze sales.csv --plan plots.yaml --plots-dir plots`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := anaFlags.validate(); err != nil {
			return err
		}
		opt, err := anaFlags.pipelineOptions(cfg)
		if err != nil {
			return err
		}
		rep, err := pipeline.RunFile(cmd.Context(), path, anaFlags.loadOptions(), opt)
		if err != nil {
			return err
		}
		if w := insightWarning(rep); w != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), w)
		}
		out, err := renderReport(rep, anaFlags.format)
		if err != nil {
			return err
		}
		if anaOutputPath == "" {
			_, err := cmd.OutOrStdout().Write(out)
			return err
		}
		if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s report to %s (%s)\n", anaFlags.format, anaOutputPath, rep.PlotStatus())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaFlags.register(analyzeCmd.Flags())
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report to a file instead of stdout")
}
