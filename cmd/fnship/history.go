package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/fnship/internal/shell/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past deploy runs",
	Long: `History lists past deploy runs newest first. With a run id it shows
that run's steps.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		return showRun(cmd, st, args[0])
	}

	runs, err := st.ListRuns(cmd.Context(), store.ListOptions{Limit: historyLimit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s\t%s\t%s", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Status)
		if run.ErrorMessage != "" {
			line += "\t" + run.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

func showRun(cmd *cobra.Command, st store.Store, id string) error {
	run, err := st.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Printf("run %s: %s (%s)\n", run.ID, run.Status, run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.ErrorMessage != "" {
		fmt.Printf("error: %s\n", run.ErrorMessage)
	}
	for _, step := range run.Steps {
		line := fmt.Sprintf("  %-8s %s", step.Status, step.ID)
		if step.DurationMS > 0 {
			line += fmt.Sprintf(" (%dms)", step.DurationMS)
		}
		if step.Message != "" {
			line += " " + step.Message
		}
		fmt.Println(line)
	}
	return nil
}
