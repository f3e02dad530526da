package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/atelierhq/wardenfs/pkg/audit"
	auditbadger "github.com/atelierhq/wardenfs/pkg/audit/badger"
	auditfile "github.com/atelierhq/wardenfs/pkg/audit/file"
	auditmem "github.com/atelierhq/wardenfs/pkg/audit/memory"
	"github.com/atelierhq/wardenfs/pkg/blob"
	blobfs "github.com/atelierhq/wardenfs/pkg/blob/fs"
	blobmem "github.com/atelierhq/wardenfs/pkg/blob/memory"
	blobs3 "github.com/atelierhq/wardenfs/pkg/blob/s3"
	"github.com/atelierhq/wardenfs/pkg/directory"
)

// CreateBlobStore builds the blob store named by the configuration. The
// Type field selects the implementation; only the matching options map is
// decoded.
func CreateBlobStore(ctx context.Context, cfg *StorageConfig) (blob.Store, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemStore(ctx, cfg.Filesystem)
	case "memory":
		return blobmem.New(), nil
	case "s3":
		return createS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}

func createFilesystemStore(ctx context.Context, options map[string]any) (blob.Store, error) {
	var storeCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem storage config: %w", err)
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem storage: path is required")
	}

	store, err := blobfs.New(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}
	return store, nil
}

func createS3Store(ctx context.Context, options map[string]any) (blob.Store, error) {
	var storeCfg blobs3.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode s3 storage config: %w", err)
	}
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("s3 storage: region is required")
	}

	store, err := blobs3.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 store: %w", err)
	}
	return store, nil
}

// CreateAuditLog builds the audit log backend named by the configuration.
func CreateAuditLog(cfg *AuditConfig) (audit.Log, error) {
	switch cfg.Type {
	case "file":
		return createFileAuditLog(cfg.File)
	case "badger":
		return createBadgerAuditLog(cfg.Badger)
	case "memory":
		return auditmem.New(), nil
	default:
		return nil, fmt.Errorf("unknown audit type: %q", cfg.Type)
	}
}

func createFileAuditLog(options map[string]any) (audit.Log, error) {
	var logCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := mapstructure.Decode(options, &logCfg); err != nil {
		return nil, fmt.Errorf("failed to decode file audit config: %w", err)
	}
	if logCfg.Path == "" {
		return nil, fmt.Errorf("file audit log: path is required")
	}

	log, err := auditfile.New(logCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file audit log: %w", err)
	}
	return log, nil
}

func createBadgerAuditLog(options map[string]any) (audit.Log, error) {
	var logCfg auditbadger.Config
	if err := mapstructure.Decode(options, &logCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger audit config: %w", err)
	}
	if logCfg.DBPath == "" {
		return nil, fmt.Errorf("badger audit log: db_path is required")
	}

	log, err := auditbadger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger audit log: %w", err)
	}
	return log, nil
}

// CreateDirectory builds the organization directory from configuration.
func CreateDirectory(cfg *OrganizationConfig) (directory.Directory, error) {
	teams := make([]directory.Team, 0, len(cfg.Teams))
	for _, team := range cfg.Teams {
		teams = append(teams, directory.Team{ID: team.ID, Members: team.Members})
	}

	dir, err := directory.NewMemoryDirectory(cfg.Agents, teams, cfg.LibraryTeam)
	if err != nil {
		return nil, fmt.Errorf("failed to build organization directory: %w", err)
	}
	return dir, nil
}
