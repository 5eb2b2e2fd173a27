package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/fnship/internal/core/domain"
	"github.com/artpar/fnship/internal/shell/executor"
	"github.com/artpar/fnship/internal/shell/pipeline"
)

var (
	deployVersions  []string
	deploySkipBuild bool
	deploySkipPush  bool
	deployDryRun    bool
	deployVerbose   bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy [service...]",
	Short: "Run the deploy pipeline for one or more services",
	Long: `Deploy builds and pushes each selected service's image, then updates
the bound remote function and releases traffic to it. With no service
arguments every service in the manifest is deployed, in manifest order.

Versions are given as name=version pairs; a bare version applies to all
selected services:

  fnship deploy --version v1.4.0
  fnship deploy api worker --version api=v1.4.0 --version worker=v0.9.2`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringArrayVar(&deployVersions, "version", nil, "service version (name=version, or a bare version for all)")
	deployCmd.Flags().BoolVar(&deploySkipBuild, "skip-build", false, "skip the image build phase")
	deployCmd.Flags().BoolVar(&deploySkipPush, "skip-push", false, "skip the image push phase")
	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false, "plan the run without executing anything")
	deployCmd.Flags().BoolVarP(&deployVerbose, "verbose", "v", false, "stream docker output")
	rootCmd.AddCommand(deployCmd)
}

// parseVersions expands --version flags into a per-service map.
func parseVersions(entries, selected []string, all []domain.ServiceDescriptor) (map[string]string, error) {
	versions := make(map[string]string)
	var bare string
	for _, entry := range entries {
		name, version, found := strings.Cut(entry, "=")
		if !found {
			if bare != "" {
				return nil, fmt.Errorf("multiple bare versions given: %q and %q", bare, entry)
			}
			bare = entry
			continue
		}
		if name == "" || version == "" {
			return nil, fmt.Errorf("invalid version %q, want name=version", entry)
		}
		versions[name] = version
	}
	if bare != "" {
		targets := selected
		if len(targets) == 0 {
			for _, svc := range all {
				targets = append(targets, svc.Name)
			}
		}
		for _, name := range targets {
			if _, ok := versions[name]; !ok {
				versions[name] = bare
			}
		}
	}
	return versions, nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}
	services := m.Descriptors()

	versions, err := parseVersions(deployVersions, args, services)
	if err != nil {
		return err
	}

	client, err := newControlPlaneClient()
	if err != nil {
		return err
	}
	if client == nil {
		logger.Warn("no control-plane credential configured, remote phases will be skipped")
	}

	pcfg := pipeline.Config{
		Registry:  m.Registry,
		Namespace: m.Namespace,
		Services:  services,
		Runner:    executor.NewRunner(logger),
		Logger:    logger,
		OnStep:    printStepTransition,
	}
	if client != nil {
		pcfg.Client = client
	}
	if deployVerbose {
		pcfg.OnLog = func(line string) { fmt.Println(line) }
	}

	orch := pipeline.NewOrchestrator(pcfg)
	record, deployErr := orch.Deploy(cmd.Context(), domain.DeployRequest{
		Services:  args,
		Versions:  versions,
		SkipBuild: deploySkipBuild,
		SkipPush:  deploySkipPush,
		DryRun:    deployDryRun,
	})

	if record != nil && !deployDryRun {
		saveRunRecord(record)
	}

	if record != nil {
		printRunSummary(record)
	}
	return deployErr
}

// saveRunRecord persists the run for the history view. Persistence problems
// never fail the deploy itself.
func saveRunRecord(record *domain.RunRecord) {
	st, err := openStore()
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return
	}
	defer st.Close()
	if err := st.SaveRun(rootCmd.Context(), record); err != nil {
		logger.Warn("failed to save run history", "run_id", record.ID, "error", err)
	}
}

// =============================================================================
// Output
// =============================================================================

func printStepTransition(stepID string, patch domain.StepPatch) {
	if patch.Status == nil {
		return
	}
	switch *patch.Status {
	case domain.StepRunning:
		fmt.Printf("  -> %s\n", stepID)
	case domain.StepSuccess:
		fmt.Printf("  ok %s\n", stepID)
	case domain.StepError:
		msg := ""
		if patch.Message != nil {
			msg = ": " + *patch.Message
		}
		fmt.Printf("  !! %s%s\n", stepID, msg)
	case domain.StepSkipped:
		msg := ""
		if patch.Message != nil {
			msg = " (" + *patch.Message + ")"
		}
		fmt.Printf("  -- %s%s\n", stepID, msg)
	}
}

func printRunSummary(record *domain.RunRecord) {
	fmt.Printf("\nrun %s: %s in %s\n", record.ID, record.Status,
		record.FinishedAt.Sub(record.StartedAt).Round(10*time.Millisecond))
	if record.ErrorMessage != "" {
		fmt.Printf("error: %s\n", record.ErrorMessage)
	}
}
