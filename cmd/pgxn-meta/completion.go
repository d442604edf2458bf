package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// createInstallCompletionCommand creates the install-completion subcommand
func createInstallCompletionCommand() *cobra.Command {
	installCompletionCmd := &cobra.Command{
		Use:   "install-completion",
		Short: "Install shell completion script",
		Long: `Install shell completion script for Bash, Zsh, Fish, or PowerShell.
Automatically detects your shell and installs the appropriate completion script.`,
		RunE: executeInstallCompletion,
	}

	// Add flags
	installCompletionCmd.Flags().String("shell", "", "Specify shell type (bash, zsh, fish, powershell)")
	installCompletionCmd.Flags().Bool("force", false, "Force overwrite existing completion files")

	return installCompletionCmd
}

// executeInstallCompletion handles installation of shell completion scripts
func executeInstallCompletion(cmd *cobra.Command, args []string) error {
	shellType, err := cmd.Flags().GetString("shell")
	if err != nil {
		return err
	}
	userForce, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// If no shell specified, detect current shell
	if shellType == "" {
		shellType, err = detectShell()
		if err != nil {
			return err
		}
	}

	// Generate completion script
	var buf bytes.Buffer
	switch shellType {
	case "bash":
		if err := cmd.Root().GenBashCompletion(&buf); err != nil {
			return fmt.Errorf("error generating Bash completion: %w", err)
		}
	case "zsh":
		if err := cmd.Root().GenZshCompletion(&buf); err != nil {
			return fmt.Errorf("error generating Zsh completion: %w", err)
		}
	case "fish":
		if err := cmd.Root().GenFishCompletion(&buf, true); err != nil {
			return fmt.Errorf("error generating Fish completion: %w", err)
		}
	case "powershell":
		if err := cmd.Root().GenPowerShellCompletion(&buf); err != nil {
			return fmt.Errorf("error generating PowerShell completion: %w", err)
		}
	default:
		return fmt.Errorf("unsupported shell type: %s", shellType)
	}

	targetPath, err := completionTarget(shellType)
	if err != nil {
		return err
	}

	// Check if file exists
	if _, err := os.Stat(targetPath); err == nil && !userForce {
		return fmt.Errorf("completion file already exists at %s. Use --force to overwrite", targetPath)
	}

	// Write completion script to file
	if err := os.WriteFile(targetPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("could not write completion file: %v", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Shell completion installed for %s at %s\n", shellType, targetPath)
	fmt.Fprintf(out, "Refer to the README.md file for further instructions to activate the installed completion file based on your shell type.\n")

	return nil
}

// detectShell infers the shell type from the environment.
func detectShell() (string, error) {
	shellEnv := os.Getenv("SHELL")
	if shellEnv == "" {
		// On Windows, we may not have $SHELL
		if os.Getenv("PSModulePath") != "" {
			return "powershell", nil
		}
		return "", fmt.Errorf("could not detect shell. Please specify with --shell flag")
	}

	switch {
	case strings.Contains(shellEnv, "bash"):
		return "bash", nil
	case strings.Contains(shellEnv, "zsh"):
		return "zsh", nil
	case strings.Contains(shellEnv, "fish"):
		return "fish", nil
	}
	return "", fmt.Errorf("unsupported shell: %s. Please specify shell with --shell flag", shellEnv)
}

// completionTarget decides where the completion script for the given shell
// should live and creates the directory when it is missing.
func completionTarget(shellType string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %v", err)
	}

	var completionDir, fileName string
	switch shellType {
	case "bash":
		// Prefer user-scoped completions
		completionDir = filepath.Join(homeDir, ".bash_completion.d")
		fileName = "pgxn-meta.bash"

		// Optional system install if writable and explicitly requested
		// (e.g., export PGXN_META_COMPLETION_SCOPE=system)
		systemDir := "/etc/bash_completion.d"
		if os.Getenv("PGXN_META_COMPLETION_SCOPE") == "system" {
			if _, err := os.Stat(systemDir); !os.IsNotExist(err) && dirWritable(systemDir) {
				return filepath.Join(systemDir, fileName), nil
			}
		}
	case "zsh":
		completionDir = filepath.Join(homeDir, ".zsh/completion")
		fileName = "_pgxn-meta"
	case "fish":
		completionDir = filepath.Join(homeDir, ".config/fish/completions")
		fileName = "pgxn-meta.fish"
	case "powershell":
		completionDir = filepath.Join(homeDir, "Documents/WindowsPowerShell")
		fileName = "pgxn-meta-completion.ps1"
	default:
		return "", fmt.Errorf("unsupported shell type: %s", shellType)
	}

	if _, err := os.Stat(completionDir); os.IsNotExist(err) {
		if err := os.MkdirAll(completionDir, 0700); err != nil {
			return "", fmt.Errorf("could not create directory %s: %v", completionDir, err)
		}
	}
	return filepath.Join(completionDir, fileName), nil
}

// dirWritable checks if the specified directory is writable by attempting to create and remove a temporary file.
func dirWritable(p string) bool {
	tf, err := os.CreateTemp(p, ".probe-*")
	if err != nil {
		return false
	}
	tf.Close()
	_ = os.Remove(tf.Name())
	return true
}
