// Package config loads, defaults and validates the wardenfs server
// configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (WARDENFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Backend selection follows a type-plus-sections pattern: the storage and
// audit sections each carry a Type field naming the implementation plus
// one map per implementation, and only the map matching the selected type
// is decoded.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/atelierhq/wardenfs/pkg/adapter/httpapi"
)

// Config is the complete wardenfs server configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// HTTP configures the HTTP API adapter
	HTTP httpapi.Config `mapstructure:"http" yaml:"http"`

	// Storage selects and configures the blob store backend
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Audit selects and configures the audit log backend
	Audit AuditConfig `mapstructure:"audit" yaml:"audit"`

	// Organization declares the agents, teams and library team
	Organization OrganizationConfig `mapstructure:"organization" yaml:"organization"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output is where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// HandleSweepInterval is how often expired folder handles are swept.
	// Sweeping only reclaims memory; expiry is enforced at resolve time.
	HandleSweepInterval time.Duration `mapstructure:"handle_sweep_interval" yaml:"handle_sweep_interval" validate:"required,gt=0"`
}

// StorageConfig selects the blob store backend.
type StorageConfig struct {
	// Type is the backend implementation.
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem holds filesystem-specific options (used when Type = "filesystem")
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// S3 holds S3-specific options (used when Type = "s3")
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// AuditConfig selects the audit log backend.
type AuditConfig struct {
	// Type is the backend implementation.
	// Valid values: file, badger, memory
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=file badger memory"`

	// File holds file-backend options (used when Type = "file")
	File map[string]any `mapstructure:"file" yaml:"file,omitempty"`

	// Badger holds BadgerDB options (used when Type = "badger")
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// TeamConfig declares one team and its members.
type TeamConfig struct {
	// ID is the team identifier used in workspace paths
	ID string `mapstructure:"id" yaml:"id" validate:"required"`

	// Members lists the agent ids belonging to the team
	Members []string `mapstructure:"members" yaml:"members"`
}

// OrganizationConfig declares the organization directory.
type OrganizationConfig struct {
	// ID identifies the organization
	ID string `mapstructure:"id" yaml:"id" validate:"required"`

	// Agents lists every agent id in the organization
	Agents []string `mapstructure:"agents" yaml:"agents" validate:"required,min=1"`

	// Teams declares the teams and their memberships
	Teams []TeamConfig `mapstructure:"teams" yaml:"teams" validate:"dive"`

	// LibraryTeam names the reserved team whose shared segment is the
	// organization-wide library. Empty means no library is configured.
	LibraryTeam string `mapstructure:"library_team" yaml:"library_team,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath falls back to the default location under the user
// config directory; a missing file there is not an error, the defaults
// carry the day.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper wires environment variables and the config file search path.
func setupViper(v *viper.Viper, configPath string) {
	// WARDENFS_LOGGING_LEVEL=DEBUG overrides logging.level, and so on
	v.SetEnvPrefix("WARDENFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(defaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is only an error when the caller named it explicitly.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && (errors.As(err, &notFound) || os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// defaultConfigDir returns $XDG_CONFIG_HOME/wardenfs or the platform
// equivalent.
func defaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "wardenfs")
}

// WriteDefault writes a fully-defaulted configuration file to path,
// creating parent directories as needed. Useful as a starting point for a
// new deployment.
func WriteDefault(path string) error {
	var cfg Config
	ApplyDefaults(&cfg)

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
