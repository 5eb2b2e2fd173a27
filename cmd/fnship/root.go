package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/artpar/fnship/internal/core/signer"
	"github.com/artpar/fnship/internal/shell/controlplane"
	"github.com/artpar/fnship/internal/shell/manifest"
	"github.com/artpar/fnship/internal/shell/store"
)

var (
	cfgFile      string
	manifestPath string

	cfg    *Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fnship",
	Short: "Deploy containerized services to a serverless function platform",
	Long: `fnship drives services through the full deploy pipeline: build the
docker image, push it to the registry, point the remote function at the new
image, wait for the image sync, trigger a traffic release, and wait for the
release to finish.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if manifestPath != "" {
			cfg.Manifest = manifestPath
		}
		logger = SetupLogger(cfg)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	rootCmd.Version = fmt.Sprintf("%s (built %s)", Version, BuildTime)
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "manifest file (default fnship.yaml)")
}

// =============================================================================
// Shared Construction Helpers
// =============================================================================

// loadManifest reads the configured manifest file.
func loadManifest() (*manifest.Manifest, error) {
	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	return m, nil
}

// newControlPlaneClient builds the signed API client, or returns nil when no
// credential is configured so callers can degrade to local-only behavior.
func newControlPlaneClient() (*controlplane.Client, error) {
	cred := signer.Credential{
		AccessKey: cfg.ControlPlane.AccessKey,
		SecretKey: cfg.ControlPlane.SecretKey,
		Region:    cfg.ControlPlane.Region,
		Service:   cfg.ControlPlane.Service,
	}
	if !cred.Configured() {
		return nil, nil
	}
	return controlplane.NewClient(controlplane.Config{
		Endpoint:   cfg.ControlPlane.Endpoint,
		Credential: cred,
		Timeout:    cfg.ControlPlane.Timeout,
	}, logger)
}

// openStore opens the run-history database, creating its directory.
func openStore() (store.Store, error) {
	dir := filepath.Dir(cfg.Database.DSN)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return store.NewSQLiteStore(cfg.Database.DSN)
}
