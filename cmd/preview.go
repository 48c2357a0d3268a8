package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sheetsync/config"
	"sheetsync/inventory"
	"sheetsync/output"
	"sheetsync/transform"
)

var (
	previewFlags  pipelineFlags
	previewLimit  int
	previewOutput string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the cleaned table that would be uploaded",
	Long: `Map and clean an inventory export without contacting Smartsheet.

Prints the column mapping and the first rows of the cleaned table. With --output the
complete cleaned table is written to a CSV or Excel file (format from the extension).`,
	Example: `
  # Show the first 20 cleaned rows
  sheetsync preview -i Cin7_Stock.xlsx

  # Export the cleaned table to Excel
  sheetsync preview -i Cin7_Stock.csv --output ./cleaned.xlsx

  # Preview with name based mapping and no row filtering
  sheetsync preview -i Cin7_Stock.csv --strategy name --verbatim --limit 50
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadOrDefault(logger)
		options, err := previewFlags.sessionOptions(cfg, cmd.Flags().Changed("verbatim"))
		if err != nil {
			return err
		}

		s, err := newSession(cfg, options, nil, nil)
		if err != nil {
			return err
		}
		if _, err := s.SelectFile(context.Background(), previewFlags.input); err != nil {
			return err
		}
		result, err := s.Process()
		if err != nil {
			return err
		}

		printMapping(os.Stdout, result.Mapping)
		fmt.Println()
		if err := printPreview(os.Stdout, result.Table, previewLimit); err != nil {
			return err
		}
		fmt.Printf("\nRows read: %d, Rows kept: %d, Rows dropped: %d\n", result.RowsRead, result.Table.Len(), result.RowsDropped)

		if strings.TrimSpace(previewOutput) != "" {
			writer, err := output.WriterForPath(previewOutput)
			if err != nil {
				return err
			}
			if err := writer.Write(previewOutput, result.Table); err != nil {
				return err
			}
			fmt.Printf("Cleaned table written to: %s\n", previewOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)

	addPipelineFlags(previewCmd, &previewFlags)
	previewCmd.Flags().IntVar(&previewLimit, "limit", 20, "Number of rows to print (0 prints all)")
	previewCmd.Flags().StringVarP(&previewOutput, "output", "o", "", "Write the cleaned table to this .csv or .xlsx file")
}

func printMapping(w io.Writer, mapping transform.ColumnMapping) {
	fmt.Fprintf(w, "Mapping strategy: %s\n", mapping.Strategy)
	for _, field := range mapping.Fields {
		fmt.Fprintf(w, "  %-18s <- %s\n", field.Title, describeBinding(mapping, field))
	}
	for _, warning := range mapping.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}

func describeBinding(mapping transform.ColumnMapping, field inventory.Field) string {
	if field.Derived {
		return "derived (SOH - Open Sales)"
	}
	binding, ok := mapping.Bindings[field.Name]
	if !ok || !binding.Matched {
		return "not found, default value"
	}
	return fmt.Sprintf("%q (column %d)", binding.Header, binding.Index+1)
}

func printPreview(w io.Writer, table *inventory.Table, limit int) error {
	rows := table.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(table.Titles(), "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(table.Values(row), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("print preview: %w", err)
	}
	if len(rows) < table.Len() {
		fmt.Fprintf(w, "... %d more row(s)\n", table.Len()-len(rows))
	}
	return nil
}
