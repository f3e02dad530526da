package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills unspecified configuration fields with sensible
// defaults. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyHTTPDefaults(cfg)
	applyStorageDefaults(&cfg.Storage)
	applyAuditDefaults(&cfg.Audit)
	applyOrganizationDefaults(&cfg.Organization)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HandleSweepInterval == 0 {
		cfg.HandleSweepInterval = 5 * time.Minute
	}
}

func applyHTTPDefaults(cfg *Config) {
	if cfg.HTTP.BindAddress == "" {
		cfg.HTTP.BindAddress = "127.0.0.1"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8420
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.OrganizationID == "" {
		cfg.HTTP.OrganizationID = cfg.Organization.ID
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}
	if cfg.Type == "filesystem" && cfg.Filesystem == nil {
		cfg.Filesystem = map[string]any{"path": "./data/workspaces"}
	}
}

func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.Type == "" {
		cfg.Type = "file"
	}
	if cfg.Type == "file" && cfg.File == nil {
		cfg.File = map[string]any{"path": "./data/audit.log"}
	}
}

func applyOrganizationDefaults(cfg *OrganizationConfig) {
	if cfg.ID == "" {
		cfg.ID = "default"
	}
	if len(cfg.Agents) == 0 {
		cfg.Agents = []string{"assistant"}
	}
}
