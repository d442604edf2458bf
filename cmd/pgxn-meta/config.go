package main

import (
	"fmt"
	"os"

	"github.com/pgxn/meta-go/internal/config"
	"github.com/spf13/cobra"
)

// createConfigCommand creates the config command with subcommands
func createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage global configuration",
	}

	// Add subcommands
	configCmd.AddCommand(createConfigShowCommand())
	configCmd.AddCommand(createConfigInitCommand())

	return configCmd
}

// createConfigShowCommand creates the config show subcommand
func createConfigShowCommand() *cobra.Command {
	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run:   executeConfigShow,
	}

	return configShowCmd
}

// createConfigInitCommand creates the config init subcommand
func createConfigInitCommand() *cobra.Command {
	configInitCmd := &cobra.Command{
		Use:   "init [config-file]",
		Short: "Initialize a new configuration file",
		Long: `Initialize a new configuration file with default values.

If no path is given, the config is created in the current directory as
pgxn-meta.yml. The generated file documents every setting.`,
		Example: `  # Create pgxn-meta.yml in the current directory
  pgxn-meta config init

  # Create config in the user's home directory
  pgxn-meta config init ~/.pgxn-meta/config.yml`,
		Args: cobra.MaximumNArgs(1),
		RunE: executeConfigInit,
	}

	return configInitCmd
}

// executeConfigShow shows the configuration in effect
func executeConfigShow(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()

	configFilePath := configFile
	if configFilePath == "" {
		configFilePath = config.FindConfigFile()
	}
	if configFilePath != "" {
		fmt.Fprintf(out, "Configuration file: %s\n", configFilePath)
	} else {
		fmt.Fprintf(out, "Configuration file: <using defaults>\n")
	}

	globalConfig := config.Global()
	fmt.Fprintf(out, "Log level: %s\n", globalConfig.LogLevel)
	if globalConfig.LogFile != "" {
		fmt.Fprintf(out, "Log file: %s\n", globalConfig.LogFile)
	} else {
		fmt.Fprintf(out, "Log file: <none>\n")
	}
	fmt.Fprintf(out, "Default file: %s\n", config.DefaultFile())
	fmt.Fprintf(out, "SHA-1 digest policy: %s\n", globalConfig.Digests.SHA1)
}

// executeConfigInit creates a new configuration file
func executeConfigInit(cmd *cobra.Command, args []string) error {
	configPath := "pgxn-meta.yml"
	if len(args) > 0 {
		configPath = args[0]
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	// Create default config and save it with descriptive comments
	defaultConfig := config.DefaultGlobalConfig()
	if err := defaultConfig.SaveGlobalConfigWithComments(configPath); err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created: %s\n", configPath)
	fmt.Fprintf(out, "\nDefault configuration settings:\n")
	fmt.Fprintf(out, "  Log level: %s\n", defaultConfig.LogLevel)
	fmt.Fprintf(out, "  Default file: %s\n", defaultConfig.DefaultFile)
	fmt.Fprintf(out, "  SHA-1 digest policy: %s\n", defaultConfig.Digests.SHA1)
	fmt.Fprintf(out, "\nEdit the configuration file to customize these settings.\n")
	return nil
}
