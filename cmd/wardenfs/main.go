package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atelierhq/wardenfs/internal/logger"
	"github.com/atelierhq/wardenfs/pkg/adapter/httpapi"
	"github.com/atelierhq/wardenfs/pkg/config"
	"github.com/atelierhq/wardenfs/pkg/discovery"
	"github.com/atelierhq/wardenfs/pkg/filesystem"
	"github.com/atelierhq/wardenfs/pkg/gateway"
	"github.com/atelierhq/wardenfs/pkg/identity"
	"github.com/atelierhq/wardenfs/pkg/permission"
	"github.com/atelierhq/wardenfs/pkg/server"
	"github.com/atelierhq/wardenfs/pkg/workspace"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (YAML)")
	logLevel := flag.String("log-level", "", "Override configured log level (DEBUG, INFO, WARN, ERROR)")
	writeDefault := flag.String("write-default-config", "", "Write a default configuration file to the given path and exit")
	flag.Parse()

	if *writeDefault != "" {
		if err := config.WriteDefault(*writeDefault); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *writeDefault)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)
	if err := configureLogOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	fmt.Println("wardenfs - Workspace Access Control Layer")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Organization: %s (%d agents, %d teams)",
		cfg.Organization.ID, len(cfg.Organization.Agents), len(cfg.Organization.Teams))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ============================================================
	// Step 1: Build the storage and audit backends
	// ============================================================
	store, err := config.CreateBlobStore(ctx, &cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close blob store: %v", err)
		}
	}()
	logger.Info("Blob store: %s", cfg.Storage.Type)

	auditLog, err := config.CreateAuditLog(&cfg.Audit)
	if err != nil {
		log.Fatalf("Failed to create audit log: %v", err)
	}
	defer func() {
		if err := auditLog.Close(); err != nil {
			logger.Error("Failed to close audit log: %v", err)
		}
	}()
	logger.Info("Audit log: %s", cfg.Audit.Type)

	// ============================================================
	// Step 2: Build the organization directory and services
	// ============================================================
	dir, err := config.CreateDirectory(&cfg.Organization)
	if err != nil {
		log.Fatalf("Failed to build organization directory: %v", err)
	}

	clock := workspace.SystemClock{}
	gate := identity.NewGate(nil)
	perms := permission.NewService(dir)
	fs := filesystem.NewService(store, auditLog, clock)
	disc := discovery.NewService(dir, store, discovery.NewHandleCache(clock))

	gw := gateway.New(gate, perms, fs, disc, auditLog, dir, clock)

	// ============================================================
	// Step 3: Start the server
	// ============================================================
	srv := server.New(disc, cfg.Server.HandleSweepInterval)
	if err := srv.AddAdapter(httpapi.New(cfg.HTTP, gw)); err != nil {
		log.Fatalf("Failed to register HTTP adapter: %v", err)
	}

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func configureLogOutput(output string) error {
	switch output {
	case "", "stdout":
		return nil
	case "stderr":
		logger.SetOutput(os.Stderr)
		return nil
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logger.SetOutput(f)
		return nil
	}
}
