package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"sheetsync/importer"
	"sheetsync/internal/logging"
	"sheetsync/smartsheet"
	"sheetsync/transform"
	"sheetsync/uploader"
)

const (
	KeySmartsheetToken   = "smartsheet.token"
	KeySmartsheetSheet   = "smartsheet.sheet"
	KeySmartsheetBaseURL = "smartsheet.base_url"
	KeySmartsheetTimeout = "smartsheet.timeout"

	KeyImportLastDirectory = "import.last_directory"
	KeyImportHeaderMode    = "import.header_mode"
	KeyImportSheet         = "import.sheet"

	KeyUploadOverwrite      = "upload.overwrite"
	KeyUploadVerbatim       = "upload.verbatim"
	KeyUploadBatchSize      = "upload.batch_size"
	KeyUploadMaxRetries     = "upload.max_retries"
	KeyUploadRetryDelay     = "upload.retry_delay"
	KeyUploadRateLimitDelay = "upload.rate_limit_delay"
	KeyUploadConfirmTimeout = "upload.confirm_timeout"

	KeyMappingStrategy        = "mapping.strategy"
	KeyMappingDeriveAvailable = "mapping.derive_available"

	KeyHistoryDB = "history.db"

	KeyLogLevel = "log.level"
	KeyLogFile  = "log.file"
)

type Config struct {
	Smartsheet SmartsheetConfig `mapstructure:"smartsheet"`
	Import     ImportConfig     `mapstructure:"import"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Mapping    MappingConfig    `mapstructure:"mapping"`
	History    HistoryConfig    `mapstructure:"history"`
	Log        LogConfig        `mapstructure:"log"`
}

type SmartsheetConfig struct {
	Token   string        `mapstructure:"token"`
	Sheet   string        `mapstructure:"sheet"`
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type ImportConfig struct {
	LastDirectory string `mapstructure:"last_directory"`
	HeaderMode    string `mapstructure:"header_mode"`
	Sheet         string `mapstructure:"sheet"`
}

type UploadConfig struct {
	Overwrite      bool          `mapstructure:"overwrite"`
	Verbatim       bool          `mapstructure:"verbatim"`
	BatchSize      int           `mapstructure:"batch_size" validate:"min=1,max=500"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"min=1,max=10"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay" validate:"gte=0"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" validate:"gt=0"`
}

type MappingConfig struct {
	Strategy        string `mapstructure:"strategy"`
	DeriveAvailable bool   `mapstructure:"derive_available"`
}

type HistoryConfig struct {
	DB string `mapstructure:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// UploaderConfig returns the batch settings used by the uploader.
func (c *Config) UploaderConfig() uploader.Config {
	return uploader.Config{
		BatchSize:      c.Upload.BatchSize,
		MaxRetries:     c.Upload.MaxRetries,
		RetryDelay:     c.Upload.RetryDelay,
		RateLimitDelay: c.Upload.RateLimitDelay,
	}
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// LoadOrDefault never fails. An unreadable or invalid configuration is logged
// and replaced by Defaults.
func LoadOrDefault(logger *slog.Logger) *Config {
	cfg, err := LoadAndValidate()
	if err == nil {
		return cfg
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("invalid configuration, using defaults", "error", err)
	return Defaults()
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	local := viper.New()
	setDefaults(local)
	cfg, err := loadAndValidateFromViper(local)
	if err != nil {
		panic(fmt.Sprintf("built-in defaults do not validate: %v", err))
	}
	return cfg
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# sheetsync configuration
smartsheet:
  # API access token, also read from SHEETSYNC_SMARTSHEET_TOKEN
  token: ""
  # sheet URL or numeric sheet id
  sheet: ""
  base_url: "https://api.smartsheet.com/2.0"
  timeout: 120s

import:
  # auto, single or stacked
  header_mode: auto
  # Excel worksheet name, first sheet when empty
  sheet: ""

upload:
  overwrite: true
  verbatim: false
  batch_size: 20
  max_retries: 3
  retry_delay: 2s
  rate_limit_delay: 500ms
  confirm_timeout: 30s

mapping:
  # auto, positional, name or none
  strategy: auto
  derive_available: true

# history.db defaults to ~/.sheetsync/history.db

log:
  level: info
  file: ""
`
}

// Save writes cfg as YAML to path with owner-only permissions.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	content, err := yaml.Marshal(toDocument(cfg))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Update sets the given keys in the YAML file at path and leaves every other
// key as written. Defaults and environment overrides are not merged in. A
// missing file is created.
func Update(path string, values map[string]any) error {
	local := viper.New()
	local.SetConfigFile(path)
	local.SetConfigType("yaml")
	local.SetConfigPermissions(0o600)

	if _, err := os.Stat(path); err == nil {
		if err := local.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config %s: %w", path, err)
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	for key, value := range values {
		local.Set(key, value)
	}
	if err := local.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// ResolveSheetID returns the sheet id configured as a URL or a bare id.
func (c *Config) ResolveSheetID() (string, error) {
	return smartsheet.ExtractSheetID(c.Smartsheet.Sheet)
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := validateEnums(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault(KeySmartsheetToken, "")
	v.SetDefault(KeySmartsheetSheet, "")
	v.SetDefault(KeySmartsheetBaseURL, smartsheet.DefaultBaseURL)
	v.SetDefault(KeySmartsheetTimeout, smartsheet.DefaultTimeout)

	v.SetDefault(KeyImportLastDirectory, home)
	v.SetDefault(KeyImportHeaderMode, string(importer.HeaderAuto))
	v.SetDefault(KeyImportSheet, "")

	upload := uploader.DefaultConfig()
	v.SetDefault(KeyUploadOverwrite, true)
	v.SetDefault(KeyUploadVerbatim, false)
	v.SetDefault(KeyUploadBatchSize, upload.BatchSize)
	v.SetDefault(KeyUploadMaxRetries, upload.MaxRetries)
	v.SetDefault(KeyUploadRetryDelay, upload.RetryDelay)
	v.SetDefault(KeyUploadRateLimitDelay, upload.RateLimitDelay)
	v.SetDefault(KeyUploadConfirmTimeout, 30*time.Second)

	v.SetDefault(KeyMappingStrategy, string(transform.StrategyAuto))
	v.SetDefault(KeyMappingDeriveAvailable, true)

	v.SetDefault(KeyHistoryDB, filepath.Join(home, ".sheetsync", "history.db"))

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
}

func validateEnums(cfg *Config) error {
	if _, err := importer.HeaderModeByName(cfg.Import.HeaderMode); err != nil {
		return fmt.Errorf("validation failed: import.header_mode: %w", err)
	}
	if _, err := transform.StrategyByName(cfg.Mapping.Strategy); err != nil {
		return fmt.Errorf("validation failed: mapping.strategy: %w", err)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("validation failed: log.level: %w", err)
	}
	if sheet := strings.TrimSpace(cfg.Smartsheet.Sheet); sheet != "" {
		if _, err := smartsheet.ExtractSheetID(sheet); err != nil {
			return fmt.Errorf("validation failed: smartsheet.sheet: %w", err)
		}
	}
	return nil
}

type document struct {
	Smartsheet struct {
		Token   string `yaml:"token"`
		Sheet   string `yaml:"sheet"`
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"smartsheet"`
	Import struct {
		LastDirectory string `yaml:"last_directory"`
		HeaderMode    string `yaml:"header_mode"`
		Sheet         string `yaml:"sheet"`
	} `yaml:"import"`
	Upload struct {
		Overwrite      bool   `yaml:"overwrite"`
		Verbatim       bool   `yaml:"verbatim"`
		BatchSize      int    `yaml:"batch_size"`
		MaxRetries     int    `yaml:"max_retries"`
		RetryDelay     string `yaml:"retry_delay"`
		RateLimitDelay string `yaml:"rate_limit_delay"`
		ConfirmTimeout string `yaml:"confirm_timeout"`
	} `yaml:"upload"`
	Mapping struct {
		Strategy        string `yaml:"strategy"`
		DeriveAvailable bool   `yaml:"derive_available"`
	} `yaml:"mapping"`
	History struct {
		DB string `yaml:"db"`
	} `yaml:"history"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// toDocument mirrors Config with durations spelled the way viper reads them.
func toDocument(cfg *Config) document {
	var doc document
	doc.Smartsheet.Token = cfg.Smartsheet.Token
	doc.Smartsheet.Sheet = cfg.Smartsheet.Sheet
	doc.Smartsheet.BaseURL = cfg.Smartsheet.BaseURL
	doc.Smartsheet.Timeout = cfg.Smartsheet.Timeout.String()
	doc.Import.LastDirectory = cfg.Import.LastDirectory
	doc.Import.HeaderMode = cfg.Import.HeaderMode
	doc.Import.Sheet = cfg.Import.Sheet
	doc.Upload.Overwrite = cfg.Upload.Overwrite
	doc.Upload.Verbatim = cfg.Upload.Verbatim
	doc.Upload.BatchSize = cfg.Upload.BatchSize
	doc.Upload.MaxRetries = cfg.Upload.MaxRetries
	doc.Upload.RetryDelay = cfg.Upload.RetryDelay.String()
	doc.Upload.RateLimitDelay = cfg.Upload.RateLimitDelay.String()
	doc.Upload.ConfirmTimeout = cfg.Upload.ConfirmTimeout.String()
	doc.Mapping.Strategy = cfg.Mapping.Strategy
	doc.Mapping.DeriveAvailable = cfg.Mapping.DeriveAvailable
	doc.History.DB = cfg.History.DB
	doc.Log.Level = cfg.Log.Level
	doc.Log.File = cfg.Log.File
	return doc
}
