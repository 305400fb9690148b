package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/puzzleshot/internal/config"
	"github.com/xkilldash9x/puzzleshot/internal/orchestrator"
	"github.com/xkilldash9x/puzzleshot/internal/recipes"
)

// newTasksCmd prints the task list a run would execute without starting a
// browser.
func newTasksCmd(current func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "Lists the captures a run would perform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := current()
			tasks, err := orchestrator.TasksFromConfig(cfg.Run)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Output directory: %s\n", filepath.Clean(cfg.Capture.OutputDir))
			for i, t := range tasks {
				fmt.Fprintf(out, "%2d. %s\n", i+1, t.Name())
			}
			fmt.Fprintf(out, "Available recipes: %v\n", recipes.Names())
			return nil
		},
	}
}
