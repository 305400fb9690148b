package recipes

import (
	"context"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
	"github.com/xkilldash9x/puzzleshot/internal/capture"
	"github.com/xkilldash9x/puzzleshot/internal/config"
)

func captureKiller(ctx context.Context, env *Env, _ Params) ([]capture.Outcome, error) {
	return env.tablePair(ctx, env.Sites.Killer, "", "sudoku_killer", true)
}

func captureClassic(ctx context.Context, env *Env, p Params) ([]capture.Outcome, error) {
	difficulty := withDefault(p.Difficulty)
	return env.tablePair(ctx, env.Sites.Classic, difficulty, "sudoku_"+difficultyName(difficulty), false)
}

func captureIrregular(ctx context.Context, env *Env, p Params) ([]capture.Outcome, error) {
	difficulty := withDefault(p.Difficulty)
	return env.tablePair(ctx, env.Sites.Irregular, difficulty, "irregulier_"+difficultyName(difficulty), true)
}

func withDefault(difficulty string) string {
	if difficulty == "" {
		return DefaultDifficulty
	}
	return difficulty
}

// tablePair runs the e-sudoku sequence. A non-empty difficulty is selected
// in the site's dropdown first. With newWindow the solution opens in a tab
// that is captured and closed again.
func (e *Env) tablePair(ctx context.Context, site config.TableSite, difficulty, name string, newWindow bool) (_ []capture.Outcome, err error) {
	if err := e.navigate(ctx, site.URL); err != nil {
		return nil, err
	}
	if err := e.dismissConsent(ctx); err != nil {
		return nil, err
	}
	if difficulty != "" {
		if err := e.Actions.SelectByText(ctx, browser.ParseLocator(site.Difficulty), difficulty, e.Timeouts.Click); err != nil {
			return nil, err
		}
	}

	var outs outcomes
	if err := outs.add(e.Capturer.CaptureElement(ctx, browser.ParseLocator(site.Grid), e.outputPath(name, false))); err != nil {
		return outs, err
	}
	var before []string
	if newWindow {
		if before, err = e.openHandles(ctx); err != nil {
			return outs, err
		}
	}
	if err := e.click(ctx, site.Solve); err != nil {
		return outs, err
	}

	solution := site.Grid
	if newWindow {
		if err := e.openSolutionWindow(ctx, before); err != nil {
			return outs, err
		}
		defer func() {
			if cerr := e.closeSolutionWindow(ctx); cerr != nil && err == nil {
				err = cerr
			}
		}()
		if site.SolutionGrid != "" {
			solution = site.SolutionGrid
		}
	}

	err = outs.add(e.Capturer.CaptureElement(ctx, browser.ParseLocator(solution), e.outputPath(name, true)))
	return outs, err
}
