package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"sheetsync/config"
)

var analyzeFlags pipelineFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Inspect an inventory export without changing anything",
	Long: `Read an inventory export and report its shape.

Prints the detected header mode, row and column counts, the columns that look like
inventory columns and the mapping strategy that would be used for upload.`,
	Example: `
  # Analyze an Excel export
  sheetsync analyze -i Cin7_Stock.xlsx

  # Force two header rows
  sheetsync analyze -i Cin7_Stock.xlsx --header-mode stacked
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadOrDefault(logger)
		options, err := analyzeFlags.sessionOptions(cfg, cmd.Flags().Changed("verbatim"))
		if err != nil {
			return err
		}

		s, err := newSession(cfg, options, nil, nil)
		if err != nil {
			return err
		}
		analysis, err := s.SelectFile(context.Background(), analyzeFlags.input)
		if err != nil {
			return err
		}
		result, err := s.Process()
		if err != nil {
			return err
		}

		fmt.Printf("File: %s\n", analysis.Path)
		fmt.Printf("Format: %s\n", analysis.Format)
		if analysis.Sheet != "" {
			fmt.Printf("Worksheet: %s\n", analysis.Sheet)
		}
		fmt.Printf("Header mode: %s\n", analysis.HeaderMode)
		fmt.Printf("Rows: %d, Columns: %d\n", analysis.Rows, analysis.Columns)
		fmt.Printf("Inventory columns (%d): %s\n", len(analysis.Indicators), strings.Join(analysis.Indicators, ", "))
		fmt.Printf("Positional layout: %t\n", analysis.PositionalLayout)
		fmt.Printf("Mapping strategy: %s\n", result.Mapping.Strategy)
		fmt.Printf("Rows after cleaning: %d (dropped %d)\n", result.Table.Len(), result.RowsDropped)
		for _, warning := range result.Mapping.Warnings {
			fmt.Printf("Warning: %s\n", warning)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	addPipelineFlags(analyzeCmd, &analyzeFlags)
}
