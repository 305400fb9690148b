// File: internal/orchestrator/tasks.go
package orchestrator

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/puzzleshot/internal/config"
	"github.com/xkilldash9x/puzzleshot/internal/recipes"
)

// Task binds a recipe to its parameters. Tasks run once, in list order.
type Task struct {
	Recipe string
	Params recipes.Params
}

// Name identifies the task in logs and reports.
func (t Task) Name() string {
	parts := []string{t.Recipe}
	if t.Params.PuzzleType != "" {
		parts = append(parts, t.Params.PuzzleType)
	}
	if t.Params.Difficulty != "" {
		parts = append(parts, t.Params.Difficulty)
	}
	return strings.Join(parts, "/")
}

// DefaultTasks is the full capture run.
func DefaultTasks() []Task {
	return []Task{
		{Recipe: recipes.Loopy},
		{Recipe: recipes.SudokuKiller},
		{Recipe: recipes.SudokuClassic, Params: recipes.Params{Difficulty: "Moyen"}},
		{Recipe: recipes.SudokuClassic, Params: recipes.Params{Difficulty: "Difficile"}},
		{Recipe: recipes.SudokuClassic, Params: recipes.Params{Difficulty: "Diabolique"}},
		{Recipe: recipes.SudokuIrregular, Params: recipes.Params{Difficulty: "Moyen"}},
		{Recipe: recipes.UnequalAdjacent, Params: recipes.Params{PuzzleType: "unequal", Difficulty: "Extreme"}},
		{Recipe: recipes.UnequalAdjacent, Params: recipes.Params{PuzzleType: "adjacent", Difficulty: "Tricky"}},
	}
}

// TasksFromConfig returns the configured task list, or DefaultTasks when
// none is configured. Unknown recipes are rejected before anything runs.
func TasksFromConfig(cfg config.RunConfig) ([]Task, error) {
	if len(cfg.Tasks) == 0 {
		return DefaultTasks(), nil
	}
	tasks := make([]Task, 0, len(cfg.Tasks))
	for i, tc := range cfg.Tasks {
		if _, err := recipes.Lookup(tc.Recipe); err != nil {
			return nil, fmt.Errorf("run.tasks[%d]: %w", i, err)
		}
		tasks = append(tasks, Task{
			Recipe: tc.Recipe,
			Params: recipes.Params{PuzzleType: tc.PuzzleType, Difficulty: tc.Difficulty},
		})
	}
	return tasks, nil
}
