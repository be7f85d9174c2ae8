package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"factorylens/internal/tables"
)

// Config represents the complete factorylens configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Walker  WalkerConfig  `json:"walker" mapstructure:"walker"`
	SQL     SQLConfig     `json:"sql" mapstructure:"sql"`
	Impact  ImpactConfig  `json:"impact" mapstructure:"impact"`
	Export  ExportConfig  `json:"export" mapstructure:"export"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// WalkerConfig bounds the nested activity tree walk
type WalkerConfig struct {
	MaxDepth int `json:"maxDepth" mapstructure:"maxDepth"`
}

// SQLConfig bounds embedded SQL scanning
type SQLConfig struct {
	MaxLength int `json:"maxLength" mapstructure:"maxLength"`
}

// ImpactConfig bounds the transitive impact traversal
type ImpactConfig struct {
	MaxDepth int `json:"maxDepth" mapstructure:"maxDepth"`
}

// ExportConfig contains output sink configuration
type ExportConfig struct {
	Format    string `json:"format" mapstructure:"format"`
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
	Compress  bool   `json:"compress" mapstructure:"compress"`
	SplitRows int    `json:"splitRows" mapstructure:"splitRows"`
	Manifest  bool   `json:"manifest" mapstructure:"manifest"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Walker: WalkerConfig{
			MaxDepth: 20,
		},
		SQL: SQLConfig{
			MaxLength: 10000,
		},
		Impact: ImpactConfig{
			MaxDepth: 5,
		},
		Export: ExportConfig{
			Format:    "csv",
			OutputDir: "factorylens-out",
			Compress:  false,
			SplitRows: tables.DefaultSplitRows,
			Manifest:  false,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .factorylens/config.json under the
// given directory, falling back to defaults when no file exists.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("walker.maxDepth", 20)
	v.SetDefault("sql.maxLength", 10000)
	v.SetDefault("impact.maxDepth", 5)
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.outputDir", "factorylens-out")
	v.SetDefault("export.splitRows", tables.DefaultSplitRows)
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, ".factorylens"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .factorylens/config.json
func (c *Config) Save(dir string) error {
	configPath := filepath.Join(dir, ".factorylens", "config.json")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Walker.MaxDepth < 1 {
		return &ConfigError{Field: "walker.maxDepth", Message: "must be at least 1"}
	}
	if c.SQL.MaxLength < 1 {
		return &ConfigError{Field: "sql.maxLength", Message: "must be at least 1"}
	}
	if c.Impact.MaxDepth < 1 {
		return &ConfigError{Field: "impact.maxDepth", Message: "must be at least 1"}
	}
	if c.Export.SplitRows < 0 || c.Export.SplitRows > tables.MaxRowsPerSheet {
		return &ConfigError{Field: "export.splitRows", Message: "must be between 0 and the sheet row cap"}
	}
	switch c.Export.Format {
	case "csv", "json", "yaml", "sqlite":
	default:
		return &ConfigError{Field: "export.format", Message: "must be one of csv, json, yaml, sqlite"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
