package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sheetsync/config"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values. The access token is masked.`,
	Example: `
  # Show active configuration
  sheetsync config show
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		if configPath := viper.ConfigFileUsed(); configPath != "" {
			fmt.Println("Config file loaded from:", configPath)
		} else {
			fmt.Println("No config file in use, showing defaults and environment values.")
		}
		fmt.Println("Configuration:")
		printConfig(os.Stdout, cfg)
		return nil
	},
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "%s: %s\n", config.KeySmartsheetToken, maskToken(cfg.Smartsheet.Token))
	fmt.Fprintf(w, "%s: %s\n", config.KeySmartsheetSheet, cfg.Smartsheet.Sheet)
	if id, err := cfg.ResolveSheetID(); err == nil {
		fmt.Fprintf(w, "  resolved sheet id: %s\n", id)
	}
	fmt.Fprintf(w, "%s: %s\n", config.KeySmartsheetBaseURL, cfg.Smartsheet.BaseURL)
	fmt.Fprintf(w, "%s: %s\n", config.KeySmartsheetTimeout, cfg.Smartsheet.Timeout)
	fmt.Fprintf(w, "%s: %s\n", config.KeyImportLastDirectory, cfg.Import.LastDirectory)
	fmt.Fprintf(w, "%s: %s\n", config.KeyImportHeaderMode, cfg.Import.HeaderMode)
	fmt.Fprintf(w, "%s: %s\n", config.KeyImportSheet, cfg.Import.Sheet)
	fmt.Fprintf(w, "%s: %t\n", config.KeyUploadOverwrite, cfg.Upload.Overwrite)
	fmt.Fprintf(w, "%s: %t\n", config.KeyUploadVerbatim, cfg.Upload.Verbatim)
	fmt.Fprintf(w, "%s: %d\n", config.KeyUploadBatchSize, cfg.Upload.BatchSize)
	fmt.Fprintf(w, "%s: %d\n", config.KeyUploadMaxRetries, cfg.Upload.MaxRetries)
	fmt.Fprintf(w, "%s: %s\n", config.KeyUploadRetryDelay, cfg.Upload.RetryDelay)
	fmt.Fprintf(w, "%s: %s\n", config.KeyUploadRateLimitDelay, cfg.Upload.RateLimitDelay)
	fmt.Fprintf(w, "%s: %s\n", config.KeyUploadConfirmTimeout, cfg.Upload.ConfirmTimeout)
	fmt.Fprintf(w, "%s: %s\n", config.KeyMappingStrategy, cfg.Mapping.Strategy)
	fmt.Fprintf(w, "%s: %t\n", config.KeyMappingDeriveAvailable, cfg.Mapping.DeriveAvailable)
	fmt.Fprintf(w, "%s: %s\n", config.KeyHistoryDB, cfg.History.DB)
	fmt.Fprintf(w, "%s: %s\n", config.KeyLogLevel, cfg.Log.Level)
	fmt.Fprintf(w, "%s: %s\n", config.KeyLogFile, cfg.Log.File)
}

// maskToken keeps the last four characters of token.
func maskToken(token string) string {
	switch {
	case token == "":
		return "(not set)"
	case len(token) <= 4:
		return "****"
	default:
		return "****" + token[len(token)-4:]
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
