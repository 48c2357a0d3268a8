package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"sheetsync/config"
	"sheetsync/storage"
)

var (
	historyDBPath string
	historyLimit  int
)

var (
	clearPromptInput  io.Reader = os.Stdin
	clearPromptOutput io.Writer = os.Stdout
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded upload runs",
	Long: `List upload runs recorded in the local SQLite history database, newest first.

Use "history show <run-id>" for the details of one run and "history clear" to delete
all recorded runs.`,
	Example: `
  # Show the last 20 runs
  sheetsync history

  # Show all runs from a custom database
  sheetsync history --limit 0 --db ./history.db
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		return printRuns(os.Stdout, runs)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetRun(args[0])
		if err != nil {
			return err
		}
		printRun(os.Stdout, run)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded runs",
	Long: `Destructive history cleanup command.

Before deletion, an interactive security prompt requires typing exactly "Y".`,
	Example: `
  # Delete every recorded run (requires interactive confirmation)
  sheetsync history clear
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := historyPath()
		confirmed, err := confirmClearPrompt(clearPromptInput, clearPromptOutput, path)
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("clear aborted: confirmation was not 'Y'")
		}

		store, err := storage.OpenSQLite(path)
		if err != nil {
			return err
		}
		defer store.Close()

		deleted, err := store.DeleteAllRuns()
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d run(s) from %s\n", deleted, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyCmd.PersistentFlags().StringVar(&historyDBPath, "db", "", "Path to the run history database (default history.db)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list (0 lists all)")
}

func historyPath() string {
	return firstNonEmpty(historyDBPath, config.LoadOrDefault(logger).History.DB)
}

func openHistory() (*storage.SQLiteStore, error) {
	return storage.OpenSQLite(historyPath())
}

func confirmClearPrompt(input io.Reader, output io.Writer, path string) (bool, error) {
	if input == nil {
		return false, fmt.Errorf("clear confirmation input is not available")
	}

	if output == nil {
		output = io.Discard
	}

	if _, err := fmt.Fprintf(output, "Delete all runs recorded in %q? Type Y to confirm: ", path); err != nil {
		return false, fmt.Errorf("write clear confirmation prompt: %w", err)
	}

	line, err := bufio.NewReader(input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read clear confirmation: %w", err)
	}
	return strings.TrimSpace(line) == "Y", nil
}

func printRuns(w io.Writer, runs []storage.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATE\tMODE\tSHEET\tUPLOADED\tFILE\tRUN")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			run.StartedAt.Local().Format(time.DateTime),
			run.State,
			run.Mode,
			firstNonEmpty(run.SheetName, run.SheetID),
			run.RowsUploaded,
			run.RowsCleaned,
			run.SourceFile,
			run.ID,
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("print runs: %w", err)
	}
	return nil
}

func printRun(w io.Writer, run storage.Run) {
	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "State: %s\n", run.State)
	fmt.Fprintf(w, "Started: %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Finished: %s (%s)\n", run.FinishedAt.Local().Format(time.RFC3339), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Source file: %s\n", run.SourceFile)
	fmt.Fprintf(w, "Sheet: %s (%s)\n", run.SheetName, run.SheetID)
	fmt.Fprintf(w, "Mode: %s, Mapping: %s\n", run.Mode, run.Strategy)
	fmt.Fprintf(w, "Rows read: %d, cleaned: %d, cleared: %d, uploaded: %d\n", run.RowsRead, run.RowsCleaned, run.RowsCleared, run.RowsUploaded)
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
}
