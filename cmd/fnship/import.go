package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/fnship/internal/shell/manifest"
)

var (
	importRegistry  string
	importNamespace string
	importForce     bool
)

var importCmd = &cobra.Command{
	Use:   "import <compose-file>",
	Short: "Generate a manifest from a docker compose file",
	Long: `Import reads a docker compose file and writes a manifest with one
entry per buildable service. Function bindings are left empty; fill in each
service's function_id before deploying.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importRegistry, "registry", "", "registry host for image tags (required)")
	importCmd.Flags().StringVar(&importNamespace, "namespace", "", "registry namespace for image tags (required)")
	importCmd.Flags().BoolVar(&importForce, "force", false, "overwrite an existing manifest")
	importCmd.MarkFlagRequired("registry")
	importCmd.MarkFlagRequired("namespace")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if !importForce {
		if _, err := os.Stat(cfg.Manifest); err == nil {
			return fmt.Errorf("manifest %s already exists, use --force to overwrite", cfg.Manifest)
		}
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read compose file: %w", err)
	}

	services, err := manifest.ImportCompose(string(data))
	if err != nil {
		return err
	}

	m := &manifest.Manifest{
		Registry:  importRegistry,
		Namespace: importNamespace,
	}
	m.SetServices(services)
	if err := manifest.Save(cfg.Manifest, m); err != nil {
		return err
	}

	fmt.Printf("wrote %s with %d services\n", cfg.Manifest, len(services))
	for _, svc := range services {
		fmt.Printf("  %s (context %s)\n", svc.Name, svc.Context)
	}
	return nil
}
