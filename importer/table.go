package importer

import (
	"fmt"
	"strings"

	"sheetsync/inventory"
)

type HeaderMode string

const (
	HeaderAuto    HeaderMode = "auto"
	HeaderSingle  HeaderMode = "single"
	HeaderStacked HeaderMode = "stacked"
)

// stackedIndicatorMinimum is the number of indicator columns the second row
// needs before it is treated as part of a two-row header.
const stackedIndicatorMinimum = 3

func HeaderModeByName(name string) (HeaderMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return HeaderAuto, nil
	case "single", "one":
		return HeaderSingle, nil
	case "stacked", "multi", "dual", "two":
		return HeaderStacked, nil
	default:
		return "", fmt.Errorf("unsupported header mode: %s", name)
	}
}

// SourceTable is a raw tabular file: flattened headers plus data rows
// addressed by column position.
type SourceTable struct {
	Path       string
	Format     string
	Sheet      string
	HeaderMode HeaderMode
	Headers    []string
	Rows       [][]string
}

func (t *SourceTable) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *SourceTable) ColumnCount() int {
	if t == nil {
		return 0
	}
	return len(t.Headers)
}

// DetectHeaderMode picks stacked headers when the second row looks more like
// a header row than the first one.
func DetectHeaderMode(rows [][]string) HeaderMode {
	if len(rows) < 2 {
		return HeaderSingle
	}
	first := len(inventory.CountIndicators(rows[0]))
	second := len(inventory.CountIndicators(rows[1]))
	if second >= stackedIndicatorMinimum && second > first {
		return HeaderStacked
	}
	return HeaderSingle
}

// FlattenHeaders joins a two-row header into one name per column. Distinct
// non-empty levels are joined with "_"; otherwise the more specific lower
// level wins.
func FlattenHeaders(top, bottom []string) []string {
	width := max(len(top), len(bottom))
	headers := make([]string, width)
	for i := range width {
		upper := strings.TrimSpace(cellAt(top, i))
		lower := strings.TrimSpace(cellAt(bottom, i))
		switch {
		case upper != "" && lower != "" && !strings.EqualFold(upper, lower):
			headers[i] = upper + "_" + lower
		case lower != "":
			headers[i] = lower
		default:
			headers[i] = upper
		}
	}
	return headers
}

func buildTable(path, format string, raw [][]string, mode HeaderMode) (*SourceTable, error) {
	raw = dropEmptyRows(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s contains no header row", path)
	}

	effective := mode
	if effective == "" || effective == HeaderAuto {
		effective = DetectHeaderMode(raw)
	}

	table := &SourceTable{Path: path, Format: format, HeaderMode: effective}
	switch effective {
	case HeaderStacked:
		if len(raw) < 2 {
			return nil, fmt.Errorf("%s has fewer than two header rows", path)
		}
		table.Headers = FlattenHeaders(raw[0], raw[1])
		table.Rows = raw[2:]
	default:
		table.Headers = FlattenHeaders(nil, raw[0])
		table.Rows = raw[1:]
	}
	return table, nil
}

func dropEmptyRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}
