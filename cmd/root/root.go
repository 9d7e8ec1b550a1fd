// Package root contains the root command for the application
package root

import (
	"fmt"

	"fjacquet/stmt-ingest/internal/config"
	"fjacquet/stmt-ingest/internal/container"
	"fjacquet/stmt-ingest/internal/logging"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	Input  string
	Output string
	Format string
}

var (
	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "stmt-ingest",
		Short: "A CLI tool to import bank statements into account ledgers.",
		Long: `stmt-ingest is a CLI tool that reads CSV exports and card statements
(PDF or extracted text), reports every candidate transaction with its
validation reasons, and commits the valid ones to an account ledger.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initContainer,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appContainer == nil {
				return nil
			}
			err := appContainer.Close()
			appContainer = nil
			return err
		},
	}

	// SharedFlags are accessible to all commands
	SharedFlags = CommonFlags{}

	configFile   string
	logLevel     string
	logFormat    string
	csvDelimiter string
	databasePath string

	appContainer *container.Container
)

// Init initializes the root command and all flags
func Init() {
	flags := Cmd.PersistentFlags()
	flags.StringVarP(&SharedFlags.Input, "input", "i", "", "Input file or directory")
	flags.StringVarP(&SharedFlags.Output, "output", "o", "", "Output file or directory (default stdout)")
	flags.StringVarP(&SharedFlags.Format, "format", "f", "text", "Report format: text, json or csv")

	flags.StringVar(&configFile, "config", "", "Config file (default searches $HOME/.stmt-ingest, .stmt-ingest and .)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&csvDelimiter, "csv-delimiter", "", "Delimiter of CSV uploads and CSV reports")
	flags.StringVar(&databasePath, "db", "", "Ledger database file")
}

func initContainer(cmd *cobra.Command, args []string) error {
	if _, err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, err := container.NewContainer(cfg)
	if err != nil {
		return err
	}
	appContainer = c
	return nil
}

// applyFlagOverrides gives command-line flags precedence over file and
// environment settings.
func applyFlagOverrides(cfg *config.Config) {
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if csvDelimiter != "" {
		cfg.CSV.Delimiter = csvDelimiter
	}
	if databasePath != "" {
		cfg.Database.Path = databasePath
	}
}

// GetContainer returns the container built for the running command.
func GetContainer() *container.Container {
	return appContainer
}

// SetContainer replaces the container; commands under test use it instead of
// the configuration loaded by PersistentPreRunE.
func SetContainer(c *container.Container) {
	appContainer = c
}

// GetLogger returns the container's logger, or a discarding logger before
// initialization.
func GetLogger() logging.Logger {
	if appContainer == nil {
		return logging.NewDiscardLogger()
	}
	return appContainer.GetLogger()
}
