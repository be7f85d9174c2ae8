package main

import (
	"os"

	"github.com/spf13/cobra"

	"factorylens/internal/config"
	"factorylens/internal/logging"
	"factorylens/internal/version"
)

var (
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "factorylens",
	Short: "factorylens - data factory dependency analyzer",
	Long: `factorylens ingests a deployment-template JSON export of a data factory
and derives a cross-referenced analytical model: typed resources, embedded SQL
tables and columns, the nested activity tree, the dependency graph, circular
dependencies, change impact, orphaned resources and execution stages.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("factorylens version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json (default from config)")
}

// mustLoadConfig loads configuration from the working directory and applies
// flag overrides. Precedence: CLI flag > FACTORYLENS_* env var > config file.
func mustLoadConfig(logger *logging.Logger) *config.Config {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("Failed to load config", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	level := logLevelFlag
	if level == "" {
		level = os.Getenv("FACTORYLENS_LOG_LEVEL")
	}
	if level != "" {
		cfg.Logging.Level = level
	}
	format := logFormatFlag
	if format == "" {
		format = os.Getenv("FACTORYLENS_LOG_FORMAT")
	}
	if format != "" {
		cfg.Logging.Format = format
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.LogLevel(cfg.Logging.Level),
	})
}
