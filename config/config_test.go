package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateYAMLContent_ExampleIsValid(t *testing.T) {
	t.Parallel()

	cfg, err := ValidateYAMLContent([]byte(ExampleYAML()))
	if err != nil {
		t.Fatalf("expected example config to validate: %v", err)
	}
	if cfg.Upload.BatchSize != 20 || cfg.Upload.MaxRetries != 3 {
		t.Fatalf("unexpected upload settings: %+v", cfg.Upload)
	}
	if cfg.Upload.RetryDelay != 2*time.Second || cfg.Upload.RateLimitDelay != 500*time.Millisecond {
		t.Fatalf("unexpected delays: %+v", cfg.Upload)
	}
	if !cfg.Upload.Overwrite || cfg.Upload.Verbatim {
		t.Fatalf("expected overwrite on and verbatim off, got %+v", cfg.Upload)
	}
	if !strings.HasSuffix(cfg.History.DB, filepath.Join(".sheetsync", "history.db")) {
		t.Fatalf("expected default history db, got %q", cfg.History.DB)
	}
}

func TestValidateYAMLContent_Rejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "batch size too large", content: "upload:\n  batch_size: 501\n", want: "BatchSize"},
		{name: "batch size zero", content: "upload:\n  batch_size: 0\n", want: "BatchSize"},
		{name: "retries too many", content: "upload:\n  max_retries: 11\n", want: "MaxRetries"},
		{name: "unknown strategy", content: "mapping:\n  strategy: fuzzy\n", want: "mapping.strategy"},
		{name: "unknown header mode", content: "import:\n  header_mode: triple\n", want: "import.header_mode"},
		{name: "unknown log level", content: "log:\n  level: loud\n", want: "log.level"},
		{name: "bad base url", content: "smartsheet:\n  base_url: not a url\n", want: "BaseURL"},
		{name: "bad sheet locator", content: "smartsheet:\n  sheet: https://example.com/home\n", want: "smartsheet.sheet"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ValidateYAMLContent([]byte(tc.content))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateYAMLContent_AcceptsSheetURL(t *testing.T) {
	t.Parallel()

	content := []byte("smartsheet:\n  sheet: https://app.smartsheet.com/sheets/3901614788374404?view=grid\nmapping:\n  strategy: Positional\n")
	cfg, err := ValidateYAMLContent(content)
	if err != nil {
		t.Fatalf("expected config to validate: %v", err)
	}
	id, err := cfg.ResolveSheetID()
	if err != nil || id != "3901614788374404" {
		t.Fatalf("expected sheet id, got %q (%v)", id, err)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	if cfg.Smartsheet.BaseURL != "https://api.smartsheet.com/2.0" || cfg.Smartsheet.Timeout != 120*time.Second {
		t.Fatalf("unexpected smartsheet defaults: %+v", cfg.Smartsheet)
	}
	if cfg.Upload.ConfirmTimeout != 30*time.Second {
		t.Fatalf("unexpected confirm timeout: %s", cfg.Upload.ConfirmTimeout)
	}
	if cfg.Mapping.Strategy != "auto" || !cfg.Mapping.DeriveAvailable {
		t.Fatalf("unexpected mapping defaults: %+v", cfg.Mapping)
	}

	upload := cfg.UploaderConfig()
	if err := upload.Validate(); err != nil {
		t.Fatalf("expected default uploader config to validate: %v", err)
	}
}

func TestSave_RoundTrips(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Smartsheet.Token = "secret"
	cfg.Smartsheet.Sheet = "3901614788374404"
	cfg.Upload.BatchSize = 50
	cfg.Upload.RateLimitDelay = 1500 * time.Millisecond

	path := filepath.Join(t.TempDir(), "nested", "sheetsync.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %o", info.Mode().Perm())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	loaded, err := ValidateYAMLContent(content)
	if err != nil {
		t.Fatalf("validate saved config: %v", err)
	}
	if loaded.Smartsheet.Token != "secret" || loaded.Upload.BatchSize != 50 || loaded.Upload.RateLimitDelay != 1500*time.Millisecond {
		t.Fatalf("saved config did not round trip: %+v", loaded)
	}
}

func TestUpdate_KeepsOtherKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sheetsync.yaml")
	original := "smartsheet:\n  token: SECRET-TOKEN\n  sheet: \"3901614788374404\"\nupload:\n  batch_size: 1000\n"
	if err := os.WriteFile(path, []byte(original), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := Update(path, map[string]any{KeyImportLastDirectory: "/data/exports"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(content)
	for _, want := range []string{"token: SECRET-TOKEN", "batch_size: 1000", "last_directory: /data/exports", "3901614788374404"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in updated config, got:\n%s", want, text)
		}
	}
	if strings.Contains(text, "base_url") {
		t.Fatalf("expected defaults to stay out of the file, got:\n%s", text)
	}
}

func TestUpdate_CreatesMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "sheetsync.yaml")
	if err := Update(path, map[string]any{KeySmartsheetToken: "secret"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	cfg, err := ValidateYAMLContent(content)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Smartsheet.Token != "secret" {
		t.Fatalf("expected token to be written, got %q", cfg.Smartsheet.Token)
	}
}

func TestUpdate_RejectsUnreadableFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("smartsheet: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Update(path, map[string]any{KeyImportLastDirectory: "/data"}); err == nil {
		t.Fatalf("expected error for unreadable config")
	}
	content, _ := os.ReadFile(path)
	if string(content) != "smartsheet: [unclosed" {
		t.Fatalf("expected broken file to stay untouched, got:\n%s", content)
	}
}
