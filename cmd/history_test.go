package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"sheetsync/storage"
)

func TestConfirmClearPrompt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "uppercase Y confirms", input: "Y\n", want: true},
		{name: "lowercase y does not confirm", input: "y\n", want: false},
		{name: "yes does not confirm", input: "yes\n", want: false},
		{name: "empty does not confirm", input: "\n", want: false},
		{name: "Y without newline confirms", input: "Y", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := confirmClearPrompt(bytes.NewBufferString(tt.input), &out, "./history.db")
			if err != nil {
				t.Fatalf("confirm prompt returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if !strings.Contains(out.String(), "history.db") {
				t.Fatalf("expected prompt to name the database, got %q", out.String())
			}
		})
	}
}

func TestPrintRuns(t *testing.T) {
	started := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	runs := []storage.Run{
		{
			ID:           "run-2",
			StartedAt:    started,
			FinishedAt:   started.Add(time.Minute),
			SourceFile:   "stock.xlsx",
			SheetID:      "3901614788374404",
			Mode:         "overwrite",
			State:        "Completed",
			RowsCleaned:  130,
			RowsUploaded: 130,
		},
		{
			ID:        "run-1",
			StartedAt: started.Add(-time.Hour),
			SheetName: "Stock",
			Mode:      "append",
			State:     "Failed",
		},
	}

	var out bytes.Buffer
	if err := printRuns(&out, runs); err != nil {
		t.Fatalf("print runs: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 lines, got %d:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[1], "130/130") || !strings.Contains(lines[1], "3901614788374404") {
		t.Fatalf("expected sheet id fallback and counts, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "Stock") || !strings.Contains(lines[2], "Failed") {
		t.Fatalf("unexpected second line %q", lines[2])
	}
}

func TestPrintRun(t *testing.T) {
	started := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	var out bytes.Buffer
	printRun(&out, storage.Run{
		ID:         "run-3",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		State:      "Failed",
		Error:      "upload: fatal remote error: append rows failed on batch 2",
	})

	text := out.String()
	if !strings.Contains(text, "(1.5s)") || !strings.Contains(text, "Error: upload: fatal remote error") {
		t.Fatalf("unexpected run output:\n%s", text)
	}
}
