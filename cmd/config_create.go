package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sheetsync/config"
)

var (
	configCreateToken string
	configCreateSheet string
)

var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a configuration file from the example template.",
	Long: `Create a new configuration file from the same example template used by "config edit".

--token and --sheet fill in the Smartsheet connection of the new file.
If a configuration file is already in use, no new file is written.`,
	Example: `
  # Create default config at $HOME/.sheetsync.yaml
  sheetsync config create

  # Create a config with the connection filled in
  sheetsync config create --token "$SMARTSHEET_TOKEN" --sheet 3901614788374404
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveDefaultConfig(configCreateToken, configCreateSheet)
	},
}

func saveDefaultConfig(token, sheet string) error {
	configPath, err := resolveConfigEditPath(cfgFile, viper.ConfigFileUsed())
	if err != nil {
		return err
	}

	created, err := ensureConfigFileWithTemplate(configPath)
	if err != nil {
		return err
	}
	if !created {
		fmt.Printf("Config file already exists at: %s\n", configPath)
		return nil
	}

	if strings.TrimSpace(token) != "" || strings.TrimSpace(sheet) != "" {
		if err := fillConnection(configPath, token, sheet); err != nil {
			return err
		}
	}

	fmt.Printf("New config file created at: %s\n", configPath)
	return nil
}

// fillConnection rewrites the file at path with the given connection values.
func fillConnection(path, token, sheet string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading new config failed: %w", err)
	}
	cfg, err := config.ValidateYAMLContent(content)
	if err != nil {
		return err
	}

	if strings.TrimSpace(token) != "" {
		cfg.Smartsheet.Token = strings.TrimSpace(token)
	}
	if strings.TrimSpace(sheet) != "" {
		cfg.Smartsheet.Sheet = strings.TrimSpace(sheet)
		if _, err := cfg.ResolveSheetID(); err != nil {
			return fmt.Errorf("invalid --sheet value: %w", err)
		}
	}
	return config.Save(path, cfg)
}

func init() {
	configCmd.AddCommand(configCreateCmd)

	configCreateCmd.Flags().StringVar(&configCreateToken, "token", "", "Smartsheet API access token for the new file")
	configCreateCmd.Flags().StringVar(&configCreateSheet, "sheet", "", "Sheet URL or id for the new file")
}
