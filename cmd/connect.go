package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sheetsync/config"
	"sheetsync/smartsheet"
)

var (
	connectToken string
	connectSheet string
	connectSave  bool
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Test the Smartsheet connection and optionally save it",
	Long: `Resolve the sheet locator, fetch the sheet and print its name, columns and row count.

The sheet can be given as a full Smartsheet URL, a published link or the numeric sheet id.
Token and sheet default to smartsheet.token and smartsheet.sheet from the configuration.
With --save both values are written back to the configuration file.`,
	Example: `
  # Test the configured connection
  sheetsync connect

  # Test and save a new token and sheet
  sheetsync connect --token "$SMARTSHEET_TOKEN" --sheet "https://app.smartsheet.com/sheets/3901614788374404" --save
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadOrDefault(logger)
		token := firstNonEmpty(connectToken, cfg.Smartsheet.Token)
		locator := firstNonEmpty(connectSheet, cfg.Smartsheet.Sheet)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		s, err := newSession(cfg, sessionDefaults(cfg), nil, nil)
		if err != nil {
			return err
		}
		if _, err := s.Connect(ctx, token, locator); err != nil {
			return err
		}
		sheet, err := s.TestConnection(ctx)
		if err != nil {
			return err
		}
		printSheet(sheet)

		if connectSave {
			cfg.Smartsheet.Token = token
			cfg.Smartsheet.Sheet = locator
			path, err := resolveConfigEditPath(cfgFile, viper.ConfigFileUsed())
			if err != nil {
				return err
			}
			values := map[string]any{
				config.KeySmartsheetToken: token,
				config.KeySmartsheetSheet: locator,
			}
			if err := config.Update(path, values); err != nil {
				return err
			}
			fmt.Printf("Connection saved to: %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().StringVar(&connectToken, "token", "", "Smartsheet API access token (default smartsheet.token)")
	connectCmd.Flags().StringVar(&connectSheet, "sheet", "", "Sheet URL or id (default smartsheet.sheet)")
	connectCmd.Flags().BoolVar(&connectSave, "save", false, "Save token and sheet to the configuration file")
}

func printSheet(sheet *smartsheet.Sheet) {
	fmt.Printf("Connected to sheet: %s (id %d)\n", sheet.Name, sheet.ID)
	if sheet.Permalink != "" {
		fmt.Printf("Link: %s\n", sheet.Permalink)
	}
	fmt.Printf("Rows: %d\n", sheet.TotalRowCount)
	fmt.Printf("Columns (%d): %s\n", len(sheet.Columns), strings.Join(sheet.ColumnTitles(), ", "))
}
