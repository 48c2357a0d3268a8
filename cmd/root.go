/*
Copyright © 2025 riad@rsworld.eu

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sheetsync/config"
	"sheetsync/internal/logging"
)

var (
	cfgFile     string
	logLevel    string
	logger      = slog.Default()
	closeLogger = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sheetsync",
	Short: "Clean ERP inventory exports and upload them to a Smartsheet sheet.",
	Long: `
**********************************************
*               SHEET SYNC                   *
**********************************************

This CLI reads an inventory export (CSV or Excel, one or two header rows), maps its
columns onto the inventory schema, cleans numeric values and uploads the rows to a
Smartsheet sheet in rate-limited, retried batches.

Supported input formats:
- Excel: .xlsx, .xlsm, .xltx, .xltm
- CSV: .csv
`,
	Example: `
  # Create configuration file
  sheetsync config create

  # Inspect an export
  sheetsync analyze -i Cin7_Stock.xlsx

  # Preview the cleaned table and write it to CSV
  sheetsync preview -i Cin7_Stock.xlsx --output ./cleaned.csv

  # Check and save the sheet connection
  sheetsync connect --token "$TOKEN" --sheet https://app.smartsheet.com/sheets/abc --save

  # Replace the sheet contents with the export
  sheetsync upload -i Cin7_Stock.xlsx

  # Append without clearing and without the confirmation prompt
  sheetsync upload -i Cin7_Stock.csv --append --yes

  # Show recent runs
  sheetsync history
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadOrDefault(slog.Default())
		level := cfg.Log.Level
		if strings.TrimSpace(logLevel) != "" {
			level = logLevel
		}

		configured, closeFn, err := logging.Setup(level, cfg.Log.File, os.Stderr)
		if err != nil {
			return err
		}
		logger = configured
		closeLogger = closeFn
		slog.SetDefault(configured)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.sheetsync.yaml, then ./.sheetsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug|info|warn|error")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sheetsync")
	}

	viper.SetEnvPrefix("SHEETSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "No config file found, using defaults. Create one with: sheetsync config create")
	}
}
