package importer

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Reader interface {
	Read(path string, mode HeaderMode) (*SourceTable, error)
}

func ReaderForFormat(format string) (Reader, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return &CSVReader{}, nil
	case "excel", "xlsx", "xlsm", "xltx", "xltm":
		return &ExcelReader{}, nil
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

// ReaderForPath picks a reader from format, or from the file extension when
// format is empty.
func ReaderForPath(path, format string) (Reader, error) {
	resolved, err := inferFormat(path, format)
	if err != nil {
		return nil, err
	}
	return ReaderForFormat(resolved)
}

func inferFormat(path string, format string) (string, error) {
	if strings.TrimSpace(format) != "" {
		return format, nil
	}

	extension := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch extension {
	case "csv":
		return "csv", nil
	case "xlsx", "xlsm", "xltx", "xltm":
		return "excel", nil
	default:
		return "", fmt.Errorf("cannot infer input format from extension %q; use --format", filepath.Ext(path))
	}
}
