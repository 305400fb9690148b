package recipes

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
	"github.com/xkilldash9x/puzzleshot/internal/capture"
)

// MenuIndex returns the position of the game type entry in the unequal
// page's menu. The site serves both unequal and adjacent puzzles, so this
// index is the only thing telling the variants apart.
func MenuIndex(puzzleType, difficulty string) int {
	if puzzleType == "unequal" {
		if difficulty == "Extreme" {
			return 5
		}
		return 2
	}
	if difficulty == "Tricky" {
		return 4
	}
	return 3
}

func captureLoopy(ctx context.Context, env *Env, _ Params) ([]capture.Outcome, error) {
	site := env.Sites.Loopy
	if err := env.navigate(ctx, site.URL); err != nil {
		return nil, err
	}
	return env.canvasPair(ctx, site.Canvas, site.Solve, "loopy")
}

func captureUnequalAdjacent(ctx context.Context, env *Env, p Params) ([]capture.Outcome, error) {
	if p.PuzzleType == "" || p.Difficulty == "" {
		return nil, fmt.Errorf("puzzle type and difficulty are required")
	}
	site := env.Sites.Unequal
	if err := env.navigate(ctx, site.URL); err != nil {
		return nil, err
	}

	if err := env.Actions.Hover(ctx, browser.ParseLocator(site.Menu), env.Timeouts.Hover); err != nil {
		return nil, err
	}
	idx := MenuIndex(p.PuzzleType, p.Difficulty)
	env.Logger.Debug("Selecting game type.", zap.String("type", p.PuzzleType), zap.String("difficulty", p.Difficulty), zap.Int("index", idx))
	if err := env.click(ctx, fmt.Sprintf(site.MenuEntry, idx)); err != nil {
		return nil, err
	}

	return env.canvasPair(ctx, site.Canvas, site.Solve, p.PuzzleType+"_"+difficultyName(p.Difficulty))
}

// canvasPair captures the canvas, clicks solve and captures it again.
func (e *Env) canvasPair(ctx context.Context, canvasSel, solveSel, name string) ([]capture.Outcome, error) {
	canvas := browser.ParseLocator(canvasSel)

	var outs outcomes
	if err := outs.add(e.Capturer.CaptureCanvas(ctx, canvas, e.outputPath(name, false))); err != nil {
		return outs, err
	}
	if err := e.click(ctx, solveSel); err != nil {
		return outs, err
	}
	err := outs.add(e.Capturer.CaptureCanvas(ctx, canvas, e.outputPath(name, true)))
	return outs, err
}
