package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/fnship/internal/shell/executor"
	"github.com/artpar/fnship/internal/shell/registry"
)

var tagsCmd = &cobra.Command{
	Use:   "tags <service>",
	Short: "List published registry tags for a service",
	Long: `Tags queries the container registry for the versions already pushed
for a service, useful before deploying with --skip-build --skip-push.`,
	Args: cobra.ExactArgs(1),
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	var image string
	for _, svc := range m.Descriptors() {
		if svc.Name == args[0] {
			image = svc.Image
			break
		}
	}
	if image == "" {
		return fmt.Errorf("service %q not found in manifest", args[0])
	}

	lister := registry.NewTagLister(executor.NewRunner(logger), logger)
	tags, err := lister.ListTags(cmd.Context(), m.Registry, m.Namespace, image)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		fmt.Println("no tags published")
		return nil
	}
	for _, tag := range tags {
		fmt.Println(tag)
	}
	return nil
}
