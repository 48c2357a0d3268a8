package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sheetsync/config"
	"sheetsync/session"
	"sheetsync/storage"
)

var (
	uploadFlags      pipelineFlags
	uploadToken      string
	uploadSheet      string
	uploadOverwrite  bool
	uploadAppend     bool
	uploadBatchSize  int
	uploadMaxRetries int
	uploadYes        bool
	uploadDBPath     string
	uploadNoHistory  bool
)

var (
	uploadPromptInput  io.Reader = os.Stdin
	uploadPromptOutput io.Writer = os.Stdout
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Clean an inventory export and upload it to Smartsheet",
	Long: `Run the complete upload: read and map the export, ask for confirmation, clear the
sheet (overwrite mode) and append the cleaned rows in batches.

Transient Smartsheet failures (rate limits, server errors, timeouts) are retried with a
growing delay. Press Ctrl+C to cancel; rows already written stay in the sheet.

The confirmation prompt accepts "y" or "yes". Without an answer within
upload.confirm_timeout the run is cancelled. Every run is recorded in the history
database unless --no-history is given.`,
	Example: `
  # Replace the sheet contents (default mode)
  sheetsync upload -i Cin7_Stock.xlsx

  # Append to the sheet without confirmation
  sheetsync upload -i Cin7_Stock.csv --append --yes

  # Upload to another sheet with bigger batches
  sheetsync upload -i Cin7_Stock.xlsx --sheet 3901614788374404 --batch-size 100
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if uploadOverwrite && uploadAppend {
			return fmt.Errorf("--overwrite and --append cannot be combined")
		}

		cfg := config.LoadOrDefault(logger)
		options, err := uploadFlags.sessionOptions(cfg, cmd.Flags().Changed("verbatim"))
		if err != nil {
			return err
		}
		switch {
		case uploadOverwrite:
			options.Overwrite = true
		case uploadAppend:
			options.Overwrite = false
		}
		if cmd.Flags().Changed("batch-size") {
			options.Upload.BatchSize = uploadBatchSize
		}
		if cmd.Flags().Changed("max-retries") {
			options.Upload.MaxRetries = uploadMaxRetries
		}

		var recorder session.Recorder
		if !uploadNoHistory {
			store, err := storage.OpenSQLite(firstNonEmpty(uploadDBPath, cfg.History.DB))
			if err != nil {
				return err
			}
			defer store.Close()
			recorder = store
		}

		s, err := newSession(cfg, options, recorder, printProgress(os.Stderr))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := s.SelectFile(ctx, uploadFlags.input); err != nil {
			return err
		}
		if _, err := s.Connect(ctx, firstNonEmpty(uploadToken, cfg.Smartsheet.Token), firstNonEmpty(uploadSheet, cfg.Smartsheet.Sheet)); err != nil {
			return err
		}

		var confirmer session.Confirmer = promptConfirmer{input: uploadPromptInput, output: uploadPromptOutput}
		if uploadYes {
			confirmer = session.AutoConfirm
		}

		outcome := s.Upload(ctx, confirmer)
		printOutcome(os.Stdout, outcome)

		if outcome.State == session.Completed {
			rememberDirectory(cfg, uploadFlags.input)
		}
		return outcomeError(outcome)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	addPipelineFlags(uploadCmd, &uploadFlags)
	uploadCmd.Flags().StringVar(&uploadToken, "token", "", "Smartsheet API access token (default smartsheet.token)")
	uploadCmd.Flags().StringVar(&uploadSheet, "sheet", "", "Target sheet URL or id (default smartsheet.sheet)")
	uploadCmd.Flags().BoolVar(&uploadOverwrite, "overwrite", false, "Delete all sheet rows before uploading (default from upload.overwrite)")
	uploadCmd.Flags().BoolVar(&uploadAppend, "append", false, "Keep existing sheet rows and append")
	uploadCmd.Flags().IntVar(&uploadBatchSize, "batch-size", 20, "Rows per append request (default from upload.batch_size)")
	uploadCmd.Flags().IntVar(&uploadMaxRetries, "max-retries", 3, "Attempts per request before giving up (default from upload.max_retries)")
	uploadCmd.Flags().BoolVarP(&uploadYes, "yes", "y", false, "Skip the confirmation prompt")
	uploadCmd.Flags().StringVar(&uploadDBPath, "db", "", "Path to the run history database (default history.db)")
	uploadCmd.Flags().BoolVar(&uploadNoHistory, "no-history", false, "Do not record this run")
}

// promptConfirmer prints the upload summary and reads the answer from input.
type promptConfirmer struct {
	input  io.Reader
	output io.Writer
}

func (p promptConfirmer) Confirm(_ context.Context, summary session.Summary) (bool, error) {
	if p.input == nil {
		return false, fmt.Errorf("upload confirmation input is not available")
	}

	output := p.output
	if output == nil {
		output = io.Discard
	}

	if _, err := summary.WriteTo(output); err != nil {
		return false, fmt.Errorf("write upload summary: %w", err)
	}
	if _, err := fmt.Fprint(output, "Proceed with upload? [y/N]: "); err != nil {
		return false, fmt.Errorf("write upload confirmation prompt: %w", err)
	}

	line, err := bufio.NewReader(p.input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read upload confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func printProgress(w io.Writer) session.ProgressFunc {
	return func(progress session.Progress) {
		switch progress.Phase {
		case session.Clearing:
			fmt.Fprintf(w, "Cleared %d/%d row(s)\n", progress.Done, progress.Total)
		case session.Uploading:
			fmt.Fprintf(w, "Uploaded %d/%d row(s)\n", progress.Done, progress.Total)
		}
	}
}

func printOutcome(w io.Writer, outcome session.Outcome) {
	mode := "append"
	if outcome.Overwrite {
		mode = "overwrite"
	}

	fmt.Fprintf(w, "Upload %s. Run: %s\n", strings.ToLower(outcome.State.String()), outcome.RunID)
	fmt.Fprintf(w, "Sheet: %s, Mode: %s, Mapping: %s\n", outcome.SheetName, mode, outcome.Strategy)
	fmt.Fprintf(w, "Rows read: %d, Rows cleaned: %d, Rows cleared: %d, Rows uploaded: %d\n",
		outcome.RowsRead,
		outcome.RowsCleaned,
		outcome.RowsCleared,
		outcome.RowsUploaded,
	)
	for _, warning := range outcome.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	switch {
	case outcome.Declined:
		fmt.Fprintln(w, "Upload was not confirmed; nothing was changed.")
	case outcome.TimedOut:
		fmt.Fprintln(w, "No confirmation received in time; nothing was changed.")
	case outcome.Err != nil:
		fmt.Fprintf(w, "Reason: %v\n", outcome.Err)
	}
}

// outcomeError turns a failed run into a command error. Cancelled runs exit
// cleanly.
func outcomeError(outcome session.Outcome) error {
	if outcome.State == session.Failed {
		if outcome.Err != nil {
			return outcome.Err
		}
		return fmt.Errorf("upload failed")
	}
	if errors.Is(outcome.Err, session.ErrAlreadyProcessing) {
		return outcome.Err
	}
	return nil
}

// rememberDirectory stores the input directory as import.last_directory when
// a configuration file is in use.
func rememberDirectory(cfg *config.Config, input string) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return
	}
	dir, err := filepath.Abs(filepath.Dir(input))
	if err != nil || dir == cfg.Import.LastDirectory {
		return
	}
	cfg.Import.LastDirectory = dir
	if err := config.Update(path, map[string]any{config.KeyImportLastDirectory: dir}); err != nil {
		logger.Warn("could not save last directory", "path", path, "error", err)
	}
}
