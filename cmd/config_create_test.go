package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"sheetsync/config"
)

func TestSaveDefaultConfigCreatesExampleTemplate(t *testing.T) {
	t.Cleanup(func() {
		cfgFile = ""
		viper.Reset()
	})

	tmpConfig := filepath.Join(t.TempDir(), "create-template.yaml")
	cfgFile = tmpConfig
	viper.Reset()

	if err := saveDefaultConfig("", ""); err != nil {
		t.Fatalf("unexpected error creating config: %v", err)
	}

	content, err := os.ReadFile(tmpConfig)
	if err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}

	text := string(content)
	if !strings.Contains(text, "# sheetsync configuration") {
		t.Fatalf("expected example header in config file, got:\n%s", text)
	}
	if !strings.Contains(text, `base_url: "https://api.smartsheet.com/2.0"`) || !strings.Contains(text, "batch_size: 20") {
		t.Fatalf("expected smartsheet and upload defaults in config file, got:\n%s", text)
	}
}

func TestSaveDefaultConfigFillsConnection(t *testing.T) {
	t.Cleanup(func() {
		cfgFile = ""
		viper.Reset()
	})

	tmpConfig := filepath.Join(t.TempDir(), "with-connection.yaml")
	cfgFile = tmpConfig
	viper.Reset()

	if err := saveDefaultConfig("secret-token", "https://app.smartsheet.com/sheets/3901614788374404"); err != nil {
		t.Fatalf("unexpected error creating config: %v", err)
	}

	content, err := os.ReadFile(tmpConfig)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	cfg, err := config.ValidateYAMLContent(content)
	if err != nil {
		t.Fatalf("created config does not validate: %v", err)
	}
	if cfg.Smartsheet.Token != "secret-token" {
		t.Fatalf("expected token to be saved, got %q", cfg.Smartsheet.Token)
	}
	if id, err := cfg.ResolveSheetID(); err != nil || id != "3901614788374404" {
		t.Fatalf("expected saved sheet to resolve, got %q (%v)", id, err)
	}
}

func TestSaveDefaultConfigDoesNotOverwriteExistingFile(t *testing.T) {
	t.Cleanup(func() {
		cfgFile = ""
		viper.Reset()
	})

	tmpConfig := filepath.Join(t.TempDir(), "existing.yaml")
	original := "smartsheet:\n  sheet: \"3901614788374404\"\nupload:\n  overwrite: false\n"
	if err := os.WriteFile(tmpConfig, []byte(original), 0o644); err != nil {
		t.Fatalf("failed writing initial config: %v", err)
	}

	cfgFile = tmpConfig
	viper.Reset()

	if err := saveDefaultConfig("other-token", ""); err != nil {
		t.Fatalf("unexpected error creating config: %v", err)
	}

	content, err := os.ReadFile(tmpConfig)
	if err != nil {
		t.Fatalf("failed reading existing config after create: %v", err)
	}
	if string(content) != original {
		t.Fatalf("expected existing config to remain unchanged")
	}
}
