package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edalens/internal/ai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models with context window and pricing",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Model", "Context", "Input $/1K", "Output $/1K"})
		for _, m := range ai.Models() {
			tw.AppendRow(table.Row{m.Name, m.ContextTokens, price(m.InputPerK), price(m.OutputPerK)})
		}
		tw.Render()
		return nil
	},
}

func price(v float64) string {
	if v == 0 {
		return "free"
	}
	return fmt.Sprintf("%.5f", v)
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
