package inventory

import "strings"

// Row holds cleaned values keyed by field name.
type Row map[string]string

func (r Row) Get(field string) string {
	return r[field]
}

// Table is the cleaned, ready-to-upload result of processing a source file.
type Table struct {
	Fields   []Field
	Rows     []Row
	Strategy string
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Titles returns the remote column titles in field order.
func (t *Table) Titles() []string {
	titles := make([]string, 0, len(t.Fields))
	for _, field := range t.Fields {
		titles = append(titles, field.Title)
	}
	return titles
}

// Values returns row values in field order.
func (t *Table) Values(row Row) []string {
	values := make([]string, 0, len(t.Fields))
	for _, field := range t.Fields {
		values = append(values, row[field.Name])
	}
	return values
}

func (t *Table) HasField(name string) bool {
	for _, field := range t.Fields {
		if field.Name == name {
			return true
		}
	}
	return false
}

// DistinctCount counts the distinct non-empty values of field across rows.
// Values are compared case-insensitively after trimming.
func (t *Table) DistinctCount(field string) int {
	if t == nil {
		return 0
	}
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		value := strings.ToLower(strings.TrimSpace(row[field]))
		if value == "" || IsNullLike(value) {
			continue
		}
		seen[value] = struct{}{}
	}
	return len(seen)
}
