// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STMT_LOG_LEVEL.
const EnvPrefix = "STMT"

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	CSV struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"csv" yaml:"csv"`

	Import struct {
		DefaultCategory string `mapstructure:"default_category" yaml:"default_category"`
		SkipZeroAmount  bool   `mapstructure:"skip_zero_amount" yaml:"skip_zero_amount"`
		MaxUploadBytes  int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
		Workers         int    `mapstructure:"workers" yaml:"workers"`
	} `mapstructure:"import" yaml:"import"`

	Classifier struct {
		KeywordsFile string `mapstructure:"keywords_file" yaml:"keywords_file"`
	} `mapstructure:"classifier" yaml:"classifier"`

	Categorization struct {
		RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`
	} `mapstructure:"categorization" yaml:"categorization"`

	Database struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"database" yaml:"database"`

	Writer struct {
		RowTimeoutSeconds int `mapstructure:"row_timeout_seconds" yaml:"row_timeout_seconds"`
	} `mapstructure:"writer" yaml:"writer"`

	PDF struct {
		PdftotextPath string `mapstructure:"pdftotext_path" yaml:"pdftotext_path"`
	} `mapstructure:"pdf" yaml:"pdf"`
}

// DelimiterRune returns the configured CSV delimiter.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.CSV.Delimiter)
	return r
}

// RowTimeout is the per-row commit bound of the ledger writer.
func (c *Config) RowTimeout() time.Duration {
	return time.Duration(c.Writer.RowTimeoutSeconds) * time.Second
}

// InitializeConfig initializes Viper configuration with hierarchical loading:
// defaults, then config.yaml from the usual locations, then STMT_* variables.
func InitializeConfig() (*Config, error) {
	return LoadConfig("")
}

// LoadConfig is InitializeConfig with an explicit config file. An empty
// configFile searches $HOME/.stmt-ingest, ./.stmt-ingest and the current
// directory.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.stmt-ingest")
		v.AddConfigPath(".stmt-ingest")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration made of default values only, ignoring
// config files and the environment.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("config defaults do not unmarshal: %v", err))
	}
	return &config
}

// Validate checks the configuration again, e.g. after command-line overrides.
func (c *Config) Validate() error {
	if err := validateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("csv.delimiter", ",")

	v.SetDefault("import.default_category", "Other")
	v.SetDefault("import.skip_zero_amount", true)
	v.SetDefault("import.max_upload_bytes", 10<<20)
	v.SetDefault("import.workers", 4)

	v.SetDefault("classifier.keywords_file", "")
	v.SetDefault("categorization.rules_file", "")

	v.SetDefault("database.path", "stmt-ingest.db")

	v.SetDefault("writer.row_timeout_seconds", 10)

	v.SetDefault("pdf.pdftotext_path", "pdftotext")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if utf8.RuneCountInString(config.CSV.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %q", config.CSV.Delimiter)
	}
	if d := config.DelimiterRune(); d == '"' || d == '\r' || d == '\n' || d == utf8.RuneError {
		return fmt.Errorf("CSV delimiter %q is not allowed", config.CSV.Delimiter)
	}

	if strings.TrimSpace(config.Import.DefaultCategory) == "" {
		return fmt.Errorf("import.default_category must not be empty")
	}

	if config.Import.MaxUploadBytes < 0 {
		return fmt.Errorf("import.max_upload_bytes must not be negative, got: %d", config.Import.MaxUploadBytes)
	}

	if config.Import.Workers < 1 || config.Import.Workers > 64 {
		return fmt.Errorf("import.workers must be between 1 and 64, got: %d", config.Import.Workers)
	}

	if config.Writer.RowTimeoutSeconds < 1 || config.Writer.RowTimeoutSeconds > 300 {
		return fmt.Errorf("writer.row_timeout_seconds must be between 1 and 300, got: %d", config.Writer.RowTimeoutSeconds)
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	return nil
}
