package main

import (
	"fmt"
	"os"

	"github.com/pgxn/meta-go/internal/config"
	"github.com/pgxn/meta-go/internal/utils/logger"
	"github.com/pgxn/meta-go/internal/utils/security"
	"github.com/spf13/cobra"
)

// Command-line flags that can override config file settings
var (
	configFile string // Path to config file
	logLevel   string // Empty means use config file value

	logCleanup func() // Set by initRuntime, flushed after Execute
)

func main() {
	// Configuration and logger setup run after cobra has parsed the
	// persistent flags, so --config and --log-level take effect.
	cobra.OnInitialize(initRuntime)

	rootCmd := createRootCommand()

	// Attach input validation to all commands
	security.AttachRecursive(rootCmd, security.DefaultLimits())

	err := rootCmd.Execute()
	if logCleanup != nil {
		logCleanup()
	}
	if err != nil {
		os.Exit(1)
	}
}

// initRuntime loads the global configuration and configures the logger.
func initRuntime() {
	configFilePath := configFile
	if configFilePath == "" {
		configFilePath = config.FindConfigFile()
	}

	globalConfig, err := config.LoadGlobalConfig(configFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Command-line log level wins over the config file
	if logLevel != "" {
		globalConfig.LogLevel = logLevel
	}

	// Set global config singleton
	config.SetGlobal(globalConfig)

	_, cleanup, err := logger.InitWithConfig(logger.Config{
		Level:    globalConfig.LogLevel,
		FilePath: globalConfig.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logCleanup = cleanup

	log := logger.Logger()
	if configFilePath != "" {
		log.Debugf("Using configuration from: %s", configFilePath)
	}
	log.Debugf("Configuration: log-level=%s, sha1-policy=%s",
		config.LogLevel(), config.SHA1Policy())
}

func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgxn-meta",
		Short: "Validate, convert, and merge PGXN distribution metadata",
		Long: `pgxn-meta works with PGXN distribution metadata (META.json files).

It validates metadata against the PGXN Meta Spec, converts version 1
documents to version 2, merges metadata documents, and verifies
downloaded release archives against their certified digests.

Version 1 metadata is recognized and upgraded to version 2 on the fly,
so every command accepts documents in either format.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config file)")

	// Add subcommands
	rootCmd.AddCommand(createValidateCommand())
	rootCmd.AddCommand(createConvertCommand())
	rootCmd.AddCommand(createMergeCommand())
	rootCmd.AddCommand(createVerifyCommand())
	rootCmd.AddCommand(createConfigCommand())
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createInstallCompletionCommand())

	return rootCmd
}
