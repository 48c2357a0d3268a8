package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"sheetsync/inventory"
)

type Writer interface {
	Write(path string, table *inventory.Table) error
}

func WriterForFormat(format string) (Writer, error) {
	switch normalizeFormat(format) {
	case "csv":
		return &CSVWriter{}, nil
	case "excel", "xlsx":
		return &ExcelWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriterForPath picks a writer from the file extension of path.
func WriterForPath(path string) (Writer, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot infer output format from %s, use a .csv or .xlsx file", path)
	}
	return WriterForFormat(ext)
}

func normalizeFormat(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}
