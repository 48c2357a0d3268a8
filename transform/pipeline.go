package transform

import (
	"log/slog"

	"sheetsync/importer"
	"sheetsync/inventory"
)

type Options struct {
	Strategy        Strategy
	Verbatim        bool
	DeriveAvailable bool
	Logger          *slog.Logger
}

type Result struct {
	Table       *inventory.Table
	Mapping     ColumnMapping
	RowsRead    int
	RowsDropped int
}

// Process maps, cleans and filters a source table. It does not modify source
// and returns the same result when called repeatedly with the same input.
func Process(source *importer.SourceTable, options Options) Result {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mapping, rows := MapColumns(source.Headers, source.Rows, MapOptions{
		Strategy:        options.Strategy,
		DeriveAvailable: options.DeriveAvailable,
	})
	for _, warning := range mapping.Warnings {
		logger.Warn("column mapping", "file", source.Path, "detail", warning)
	}

	kept, dropped := FilterRows(rows, KeyField(mapping.Fields), options.Verbatim)
	logger.Debug("processed source table",
		"file", source.Path,
		"strategy", mapping.Strategy,
		"rows_read", len(source.Rows),
		"rows_kept", len(kept),
		"rows_dropped", dropped,
	)

	return Result{
		Table: &inventory.Table{
			Fields:   mapping.Fields,
			Rows:     kept,
			Strategy: string(mapping.Strategy),
		},
		Mapping:     mapping,
		RowsRead:    len(source.Rows),
		RowsDropped: dropped,
	}
}

// KeyField is ProductCode when present, otherwise the first column.
func KeyField(fields []inventory.Field) string {
	for _, field := range fields {
		if field.Name == inventory.FieldProductCode {
			return field.Name
		}
	}
	if len(fields) > 0 {
		return fields[0].Name
	}
	return inventory.FieldProductCode
}
