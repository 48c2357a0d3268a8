package transform

import (
	"strings"

	"sheetsync/inventory"
)

var summaryMarkers = []string{"grand total", "total"}

// KeepRow reports whether row carries a real key value. Rows whose key is
// empty, a null spelling, a summary label or a repeated header are rejected.
// A header echo of the schema key is matched as a substring, any other key
// field only when the value equals the field name.
func KeepRow(row inventory.Row, keyField string) bool {
	key := strings.TrimSpace(row[keyField])
	if key == "" || inventory.IsNullLike(key) {
		return false
	}

	lower := strings.ToLower(key)
	for _, marker := range summaryMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	if keyField == inventory.FieldProductCode {
		return !strings.Contains(lower, strings.ToLower(keyField))
	}
	return lower != strings.ToLower(keyField)
}

// FilterRows drops rows rejected by KeepRow. In verbatim mode every row is
// kept unchanged.
func FilterRows(rows []inventory.Row, keyField string, verbatim bool) ([]inventory.Row, int) {
	if verbatim {
		return rows, 0
	}

	kept := make([]inventory.Row, 0, len(rows))
	for _, row := range rows {
		if KeepRow(row, keyField) {
			kept = append(kept, row)
		}
	}
	return kept, len(rows) - len(kept)
}
