package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sheetsync configuration file values.",
	Long: `Create, edit and display the sheetsync configuration file.

The configuration stores the Smartsheet connection and the upload defaults:
- smartsheet.token / smartsheet.sheet / smartsheet.base_url / smartsheet.timeout
- import.header_mode / import.sheet / import.last_directory
- upload.overwrite / upload.verbatim / upload.batch_size / upload.max_retries
- upload.retry_delay / upload.rate_limit_delay / upload.confirm_timeout
- mapping.strategy / mapping.derive_available
- history.db, log.level, log.file

Every key can also be set through the environment, for example SHEETSYNC_SMARTSHEET_TOKEN.`,
	Example: `
  # Create default config in $HOME/.sheetsync.yaml
  sheetsync config create

  # Show active config and source file
  sheetsync config show

  # Open active config in editor (creates example if missing)
  sheetsync config edit
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
