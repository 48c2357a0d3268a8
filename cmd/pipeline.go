package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"sheetsync/config"
	"sheetsync/importer"
	"sheetsync/session"
	"sheetsync/smartsheet"
	"sheetsync/transform"
)

// pipelineFlags are the file and mapping flags shared by analyze, preview
// and upload. Empty values fall back to the configuration.
type pipelineFlags struct {
	input      string
	format     string
	headerMode string
	excelSheet string
	strategy   string
	verbatim   bool
}

func addPipelineFlags(cmd *cobra.Command, f *pipelineFlags) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Inventory export to read (.csv, .xlsx, .xlsm)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Input format: csv|excel (optional, inferred from extension when omitted)")
	cmd.Flags().StringVar(&f.headerMode, "header-mode", "", "Header rows: auto|single|stacked (default from import.header_mode)")
	cmd.Flags().StringVar(&f.excelSheet, "excel-sheet", "", "Worksheet to read from Excel files (default from import.sheet, then the first sheet)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Column mapping: auto|positional|name|none (default from mapping.strategy)")
	cmd.Flags().BoolVar(&f.verbatim, "verbatim", false, "Keep every row, including blank, summary and repeated header rows")

	_ = cmd.MarkFlagRequired("input")
}

// sessionOptions merges flags over cfg. verbatimSet reports whether
// --verbatim was given explicitly.
func (f *pipelineFlags) sessionOptions(cfg *config.Config, verbatimSet bool) (session.Options, error) {
	headerMode, err := importer.HeaderModeByName(firstNonEmpty(f.headerMode, cfg.Import.HeaderMode))
	if err != nil {
		return session.Options{}, err
	}
	strategy, err := transform.StrategyByName(firstNonEmpty(f.strategy, cfg.Mapping.Strategy))
	if err != nil {
		return session.Options{}, err
	}

	verbatim := cfg.Upload.Verbatim
	if verbatimSet {
		verbatim = f.verbatim
	}

	return session.Options{
		Format:          f.format,
		HeaderMode:      headerMode,
		ExcelSheet:      firstNonEmpty(f.excelSheet, cfg.Import.Sheet),
		Strategy:        strategy,
		Verbatim:        verbatim,
		DeriveAvailable: cfg.Mapping.DeriveAvailable,
		Overwrite:       cfg.Upload.Overwrite,
		Upload:          cfg.UploaderConfig(),
		ConfirmTimeout:  cfg.Upload.ConfirmTimeout,
	}, nil
}

// sessionDefaults builds session options from cfg alone.
func sessionDefaults(cfg *config.Config) session.Options {
	options, err := (&pipelineFlags{}).sessionOptions(cfg, false)
	if err != nil {
		return session.Options{Upload: cfg.UploaderConfig(), ConfirmTimeout: cfg.Upload.ConfirmTimeout}
	}
	return options
}

func clientFactory(cfg *config.Config) session.ClientFactory {
	return func(token string) (smartsheet.Client, error) {
		return smartsheet.NewClient(smartsheet.ClientConfig{
			BaseURL:   cfg.Smartsheet.BaseURL,
			Token:     token,
			UserAgent: "sheetsync",
			Timeout:   cfg.Smartsheet.Timeout,
		})
	}
}

func newSession(cfg *config.Config, options session.Options, recorder session.Recorder, progress session.ProgressFunc) (*session.Session, error) {
	s, err := session.New(session.Config{
		Options:       options,
		ClientFactory: clientFactory(cfg),
		Recorder:      recorder,
		Progress:      progress,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
