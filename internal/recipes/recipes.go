// Package recipes holds the per-site capture sequences. Every recipe follows
// the same shape: navigate, handle the consent overlay once per domain
// family, configure the puzzle, capture it, solve it, capture the solution
// and restore the main window if the solution opened in a new tab.
package recipes

import (
	"context"
	"fmt"
	"sort"

	"github.com/xkilldash9x/puzzleshot/internal/capture"
)

// Recipe keys.
const (
	Loopy           = "loopy"
	SudokuKiller    = "sudoku_killer"
	SudokuClassic   = "sudoku_classic"
	SudokuIrregular = "sudoku_irregular"
	UnequalAdjacent = "unequal_adjacent"
)

// DefaultDifficulty is used by the sudoku recipes when none is given.
const DefaultDifficulty = "Moyen"

// Params are the arguments bound to one task.
type Params struct {
	PuzzleType string
	Difficulty string
}

// Recipe runs one site sequence and returns the captures it attempted, in
// order. Outcomes gathered before a failure are returned with the error.
type Recipe func(ctx context.Context, env *Env, p Params) ([]capture.Outcome, error)

var registry = map[string]Recipe{
	Loopy:           captureLoopy,
	SudokuKiller:    captureKiller,
	SudokuClassic:   captureClassic,
	SudokuIrregular: captureIrregular,
	UnequalAdjacent: captureUnequalAdjacent,
}

// Lookup returns the recipe registered under name.
func Lookup(name string) (Recipe, error) {
	r, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown recipe %q (available: %v)", name, Names())
	}
	return r, nil
}

// Names lists the registered recipe keys.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// outcomes accumulates capture results across the steps of a recipe.
type outcomes []capture.Outcome

func (o *outcomes) add(out capture.Outcome, err error) error {
	if out.Status != "" {
		*o = append(*o, out)
	}
	return err
}
