// internal/config/global.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pgxn/meta-go/internal/config/validate"
	"github.com/pgxn/meta-go/internal/utils/logger"
	"github.com/pgxn/meta-go/internal/utils/security"
	"github.com/pgxn/meta-go/internal/utils/slice"
	"gopkg.in/yaml.v3"
)

// Policies for releases whose strongest digest is SHA-1.
const (
	SHA1Allow  = "allow"
	SHA1Warn   = "warn"
	SHA1Reject = "reject"
)

// GlobalConfig holds essential tool-level configuration parameters
type GlobalConfig struct {
	// Logging configuration
	LogLevel string `yaml:"log-level" json:"log-level"`                   // Log verbosity level: debug (most verbose), info (default), warn (warnings only), error (errors only)
	LogFile  string `yaml:"log-file,omitempty" json:"log-file,omitempty"` // Optional log file path for teeing output to disk

	// Metadata file read when a command gets no positional argument
	DefaultFile string `yaml:"default-file,omitempty" json:"default-file,omitempty"`

	// Digest verification settings
	Digests DigestsConfig `yaml:"digests" json:"digests"` // Release digest policies
}

// DigestsConfig controls how release digests are judged during verification
type DigestsConfig struct {
	SHA1 string `yaml:"sha1" json:"sha1"` // Policy when only a SHA-1 digest is available: allow, warn (default), reject
}

// Global singleton variables
var (
	globalInstance *GlobalConfig
	globalMutex    sync.RWMutex
	once           sync.Once
)

// SetGlobal sets the global config instance (call once at startup in main.go)
func SetGlobal(config *GlobalConfig) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalInstance = config
}

// Global returns the global config instance
func Global() *GlobalConfig {
	once.Do(func() {
		globalMutex.Lock()
		defer globalMutex.Unlock()
		if globalInstance == nil {
			globalInstance = DefaultGlobalConfig()
		}
	})

	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return globalInstance
}

// DefaultGlobalConfig returns a GlobalConfig with sensible defaults
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogLevel:    "info",
		DefaultFile: "META.json",

		Digests: DigestsConfig{
			SHA1: SHA1Warn,
		},
	}
}

// LoadGlobalConfig loads configuration from the specified path
func LoadGlobalConfig(configPath string) (*GlobalConfig, error) {
	// Resolve the logger per call so messages reach a file sink
	// configured after package init.
	log := logger.Logger()

	// Start with defaults
	config := DefaultGlobalConfig()

	// If no config file specified or doesn't exist, return defaults
	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return config, nil // Return defaults if file doesn't exist
		}
		if errors.Is(err, os.ErrPermission) {
			log.Warnf("Config file %s is not accessible (%v); using defaults", configPath, err)
			return config, nil
		}
		log.Errorf("Error accessing config file %s: %v", configPath, err)
		return nil, fmt.Errorf("accessing config file %s: %w", configPath, err)
	}

	// Load and merge config file values with symlink protection
	data, err := security.SafeReadFile(configPath, security.RejectSymlinks)
	if err != nil {
		log.Errorf("Error reading config file %s: %v", configPath, err)
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	// Determine format by extension
	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		// Validate the raw document first so unknown keys are reported
		// instead of silently dropped by the struct decode.
		if err := validate.ValidateConfigYAML(data); err != nil {
			log.Errorf("Schema validation failed: %v", err)
			return nil, fmt.Errorf("schema validation failed: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			log.Errorf("Error parsing YAML config: %v", err)
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}

		// Reject control characters and oversized values
		if err := security.ValidateStructStrings(config, security.DefaultLimits()); err != nil {
			log.Errorf("Config input validation failed: %v", err)
			return nil, fmt.Errorf("config input validation failed: %w", err)
		}

	default:
		log.Errorf("Unsupported config file format: %s", ext)
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml)", ext)
	}

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		log.Errorf("Config validation failed: %v", err)
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// SaveGlobalConfig saves the configuration to the specified path
func (gc *GlobalConfig) SaveGlobalConfig(configPath string) error {
	log := logger.Logger()

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Errorf("Failed to create config directory: %v", err)
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	// Convert to JSON for schema validation before saving
	jsonData, err := json.Marshal(gc)
	if err != nil {
		log.Errorf("Error converting config to JSON for validation: %v", err)
		return fmt.Errorf("converting config to JSON for validation: %w", err)
	}

	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		log.Errorf("Config validation failed before save: %v", err)
		return fmt.Errorf("config validation failed before save: %w", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(gc)
	if err != nil {
		log.Errorf("Error marshaling config to YAML: %v", err)
		return fmt.Errorf("marshaling config to YAML: %w", err)
	}

	// Use safe write to prevent symlink attacks
	if err := security.SafeWriteFile(configPath, data, 0600, security.RejectSymlinks); err != nil {
		log.Errorf("Error writing config file: %v", err)
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// SaveGlobalConfigWithComments saves the configuration with descriptive
// comments. Primarily used by the CLI config init command to create a
// user-friendly starting file.
func (gc *GlobalConfig) SaveGlobalConfigWithComments(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path is empty")
	}
	log := logger.Logger()

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Errorf("Failed to create config directory: %v", err)
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	jsonData, err := json.Marshal(gc)
	if err != nil {
		log.Errorf("Error converting config to JSON for validation: %v", err)
		return fmt.Errorf("converting config to JSON for validation: %w", err)
	}

	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		log.Errorf("Config validation failed before save: %v", err)
		return fmt.Errorf("config validation failed before save: %w", err)
	}

	commented := gc.renderCommentedYAML()

	if err := security.SafeWriteFile(configPath, []byte(commented), 0600, security.RejectSymlinks); err != nil {
		log.Errorf("Error writing config file: %v", err)
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// renderCommentedYAML builds a YAML representation of the config with rich comments.
func (gc *GlobalConfig) renderCommentedYAML() string {
	var b strings.Builder

	b.WriteString("# pgxn-meta - Global Configuration\n")
	b.WriteString("# This file contains tool-level settings that apply to every invocation.\n")
	b.WriteString("# Distribution metadata itself lives in META.json files, not here.\n\n")

	b.WriteString("# Logging configuration\n")
	fmt.Fprintf(&b, "log-level: %q\n", gc.LogLevel)
	b.WriteString("# Log verbosity level (default: info)\n")
	b.WriteString("# - debug: Most verbose, shows schema evaluation details\n")
	b.WriteString("# - info:  Normal output, shows progress and important events\n")
	b.WriteString("# - warn:  Only warnings and errors, minimal output\n")
	b.WriteString("# - error: Only errors, very quiet operation\n\n")

	if gc.LogFile != "" {
		fmt.Fprintf(&b, "log-file: %q\n", gc.LogFile)
		b.WriteString("# Tee logs to this file in addition to stderr (overwritten on each run)\n\n")
	}

	if gc.DefaultFile != "" {
		fmt.Fprintf(&b, "default-file: %q\n", gc.DefaultFile)
		b.WriteString("# Metadata file read when a command gets no positional argument\n\n")
	}

	b.WriteString("# Digest verification settings\n")
	b.WriteString("digests:\n")
	fmt.Fprintf(&b, "  sha1: %q\n", gc.Digests.SHA1)
	b.WriteString("  # How to treat releases whose strongest digest is SHA-1 (default: warn)\n")
	b.WriteString("  # - allow:  Accept a matching SHA-1 digest silently\n")
	b.WriteString("  # - warn:   Accept a matching SHA-1 digest but log a warning\n")
	b.WriteString("  # - reject: Fail verification when no stronger digest is present\n")

	return b.String()
}

// Validate checks the configuration for consistency
// Note: This should NOT set defaults - that's done in DefaultGlobalConfig()
func (gc *GlobalConfig) Validate() error {
	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slice.Contains(validLevels, gc.LogLevel) {
		return fmt.Errorf("invalid log level %q, must be one of: %s",
			gc.LogLevel, strings.Join(validLevels, ", "))
	}

	gc.LogFile = strings.TrimSpace(gc.LogFile)
	gc.DefaultFile = strings.TrimSpace(gc.DefaultFile)

	// Validate the SHA-1 digest policy
	validPolicies := []string{SHA1Allow, SHA1Warn, SHA1Reject}
	if !slice.Contains(validPolicies, gc.Digests.SHA1) {
		return fmt.Errorf("invalid sha1 digest policy %q, must be one of: %s",
			gc.Digests.SHA1, strings.Join(validPolicies, ", "))
	}

	return nil
}

// GetConfigPaths returns the standard configuration file paths to check
func GetConfigPaths() []string {
	homeDir, _ := os.UserHomeDir()

	paths := []string{
		"pgxn-meta.yml",   // Primary config location (current directory)
		".pgxn-meta.yml",  // Hidden file in current directory
		"pgxn-meta.yaml",  // Alternative extension
		".pgxn-meta.yaml", // Hidden file alternative
	}

	if homeDir != "" {
		paths = append(paths,
			filepath.Join(homeDir, ".pgxn-meta", "config.yml"),
			filepath.Join(homeDir, ".pgxn-meta", "config.yaml"),
			filepath.Join(homeDir, ".config", "pgxn-meta", "config.yml"),
			filepath.Join(homeDir, ".config", "pgxn-meta", "config.yaml"),
		)
	}

	// System-wide config paths
	paths = append(paths,
		"/etc/pgxn-meta/config.yml",
		"/etc/pgxn-meta/config.yaml",
	)

	return paths
}

// FindConfigFile searches for a configuration file in standard locations
func FindConfigFile() string {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Convenience functions that can be used anywhere in the codebase
func LogLevel() string {
	return Global().LogLevel
}

func LogFile() string {
	return Global().LogFile
}

// DefaultFile returns the metadata file commands read when invoked without
// a positional argument.
func DefaultFile() string {
	if f := Global().DefaultFile; f != "" {
		return f
	}
	return "META.json"
}

func IsDebugMode() bool {
	return Global().LogLevel == "debug"
}

// SHA1Policy returns the configured policy for SHA-1-only releases.
func SHA1Policy() string {
	return Global().Digests.SHA1
}
