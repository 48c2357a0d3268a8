package cmd

import (
	"bytes"
	"strings"
	"testing"

	"sheetsync/inventory"
	"sheetsync/transform"
)

func TestPrintMapping(t *testing.T) {
	mapping := transform.ResolveMapping(
		[]string{"SKU", "Name", "Loc", "4 - SOH", "5 - Incoming", "6 - Open", "7 - Total"},
		transform.MapOptions{Strategy: transform.StrategyAuto, DeriveAvailable: true},
	)

	var out bytes.Buffer
	printMapping(&out, mapping)

	text := out.String()
	for _, want := range []string{
		"Mapping strategy: positional",
		`"SKU" (column 1)`,
		`"7 - Total" (column 7)`,
		"derived (SOH - Open Sales)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestPrintPreviewLimitsRows(t *testing.T) {
	table := &inventory.Table{Fields: inventory.SourceFields()}
	for _, code := range []string{"A1", "B2", "C3"} {
		table.Rows = append(table.Rows, inventory.Row{inventory.FieldProductCode: code})
	}

	var out bytes.Buffer
	if err := printPreview(&out, table, 2); err != nil {
		t.Fatalf("print preview: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "A1") || !strings.Contains(text, "B2") || strings.Contains(text, "C3") {
		t.Fatalf("expected first two rows only, got:\n%s", text)
	}
	if !strings.Contains(text, "... 1 more row(s)") {
		t.Fatalf("expected remaining row count, got:\n%s", text)
	}
}

func TestMaskToken(t *testing.T) {
	tests := map[string]string{
		"":              "(not set)",
		"abc":           "****",
		"abcdefgh12345": "****2345",
	}
	for token, want := range tests {
		if got := maskToken(token); got != want {
			t.Fatalf("maskToken(%q): expected %q, got %q", token, want, got)
		}
	}
}
