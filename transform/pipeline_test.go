package transform

import (
	"reflect"
	"testing"

	"sheetsync/importer"
	"sheetsync/inventory"
)

func sampleSource() *importer.SourceTable {
	return &importer.SourceTable{
		Path:    "inventory.csv",
		Format:  "csv",
		Headers: []string{"ProductCode", "Product", "Branch", "SOH", "Incoming", "Open Sales", "Grand Total"},
		Rows: [][]string{
			{"A1", "Widget", "Main", "$1,244.00", "(5)", "4", "1,243"},
			{"ProductCode", "Product", "Branch", "SOH", "Incoming", "Open Sales", "Grand Total"},
			{"B2", "Bolt", "North", "nan", "", "2.5", "3"},
			{"Grand Total", "", "", "1000", "", "", "1000"},
			{"", "", "", "", "", "", ""},
		},
	}
}

func TestProcess_CleansAndFilters(t *testing.T) {
	t.Parallel()

	result := Process(sampleSource(), Options{Strategy: StrategyAuto, DeriveAvailable: true})
	if result.RowsRead != 5 || result.RowsDropped != 3 {
		t.Fatalf("expected 5 read and 3 dropped, got %d read and %d dropped", result.RowsRead, result.RowsDropped)
	}
	if result.Table.Len() != 2 {
		t.Fatalf("expected 2 cleaned rows, got %d", result.Table.Len())
	}

	first := result.Table.Rows[0]
	if first[inventory.FieldSOH] != "1244" || first[inventory.FieldIncomingNotPaid] != "-5" || first[inventory.FieldAvailable] != "1240" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	second := result.Table.Rows[1]
	if second[inventory.FieldSOH] != "" || second[inventory.FieldAvailable] != "-2.5" {
		t.Fatalf("unexpected second row: %+v", second)
	}

	titles := result.Table.Titles()
	if titles[len(titles)-1] != "Available" {
		t.Fatalf("expected Available as last column, got %v", titles)
	}
}

func TestProcess_VerbatimKeepsEveryRow(t *testing.T) {
	t.Parallel()

	result := Process(sampleSource(), Options{Strategy: StrategyAuto, Verbatim: true})
	if result.Table.Len() != 5 || result.RowsDropped != 0 {
		t.Fatalf("expected all 5 rows in verbatim mode, got %d", result.Table.Len())
	}
}

func TestProcess_IsIdempotent(t *testing.T) {
	t.Parallel()

	source := sampleSource()
	first := Process(source, Options{Strategy: StrategyAuto, DeriveAvailable: true})
	second := Process(source, Options{Strategy: StrategyAuto, DeriveAvailable: true})
	if !reflect.DeepEqual(first.Table, second.Table) {
		t.Fatalf("expected identical tables, got\n%+v\n%+v", first.Table, second.Table)
	}
	if source.Rows[0][3] != "$1,244.00" {
		t.Fatalf("source table was modified: %v", source.Rows[0])
	}
}
