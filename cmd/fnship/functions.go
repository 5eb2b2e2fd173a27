package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	functionsPage     int
	functionsPageSize int
)

var functionsCmd = &cobra.Command{
	Use:   "functions [name-filter]",
	Short: "List functions on the control plane",
	Long: `Functions lists the remote functions the configured credential can
see, optionally filtered by name. Use it to find the function id to bind a
service to in the manifest.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFunctions,
}

func init() {
	functionsCmd.Flags().IntVar(&functionsPage, "page", 1, "page number")
	functionsCmd.Flags().IntVar(&functionsPageSize, "page-size", 50, "results per page")
	rootCmd.AddCommand(functionsCmd)
}

func runFunctions(cmd *cobra.Command, args []string) error {
	client, err := newControlPlaneClient()
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("no control-plane credential configured")
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	functions, err := client.ListFunctions(cmd.Context(), functionsPage, functionsPageSize, name)
	if err != nil {
		return err
	}
	if len(functions) == 0 {
		fmt.Println("no functions found")
		return nil
	}

	for _, fn := range functions {
		fmt.Printf("%s\t%s\t%s\n", fn.Id, fn.Name, fn.Source)
	}
	return nil
}
