package smartsheet

import (
	"errors"
	"testing"
)

func TestExtractSheetID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		locator string
		want    string
		wantErr bool
	}{
		{name: "bare id", locator: " 4583173393803140 ", want: "4583173393803140"},
		{name: "sheets path", locator: "https://app.smartsheet.com/sheets/Gq7Rw2x9?view=grid", want: "Gq7Rw2x9"},
		{name: "sheets path with trailing segment", locator: "https://app.smartsheet.com/sheets/123abc/print", want: "123abc"},
		{name: "query parameter", locator: "https://app.smartsheet.com/b/home?lx=abc&EQBCT=7f3e2a91&x=1", want: "7f3e2a91"},
		{name: "nineteen digit run", locator: "https://example.test/x/1234567890123456789/y", want: "1234567890123456789"},
		{name: "ten digit run", locator: "https://example.test/x/id-1234567890", want: "1234567890"},
		{name: "path wins over digits", locator: "https://app.smartsheet.com/sheets/abc?ref=1234567890123456789", want: "abc"},
		{name: "empty", locator: "", wantErr: true},
		{name: "no id", locator: "https://app.smartsheet.com/home", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractSheetID(tt.locator)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLocator) {
					t.Fatalf("expected ErrInvalidLocator, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %q, got %q", tt.want, got)
			}
		})
	}
}
