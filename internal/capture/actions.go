package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
)

// Actions wraps a Driver with wait-then-act helpers.
type Actions struct {
	driver browser.Driver
	logger *zap.Logger
}

// NewActions binds the helpers to driver.
func NewActions(driver browser.Driver, logger *zap.Logger) *Actions {
	return &Actions{driver: driver, logger: logger.Named("actions")}
}

// Click waits for loc to become clickable and clicks it. A wait failure is
// returned wrapped in browser.ErrElementNotInteractable.
func (a *Actions) Click(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	if err := a.driver.WaitFor(ctx, loc, browser.Clickable, timeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s within %s: %v", browser.ErrElementNotInteractable, loc, timeout, err)
	}

	clickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.driver.Click(clickCtx, loc)
}

// ClickIfPresent is Click for optional elements such as consent overlays:
// an element that never becomes clickable is logged and skipped.
func (a *Actions) ClickIfPresent(ctx context.Context, loc browser.Locator, timeout time.Duration) (bool, error) {
	err := a.Click(ctx, loc, timeout)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, browser.ErrElementNotInteractable) {
		a.logger.Warn("Optional element not found or not clickable.", zap.Stringer("selector", loc), zap.Duration("timeout", timeout))
		return false, nil
	}
	return false, err
}

// selectScript sets a <select> to the option whose visible text matches
// exactly and fires the events a user selection would.
const selectScript = `(function() {
	const el = %s;
	if (!el) return "missing";
	const want = %s;
	for (let i = 0; i < el.options.length; i++) {
		if (el.options[i].text.replace(/\s+/g, " ").trim() === want) {
			el.selectedIndex = i;
			el.dispatchEvent(new Event("input", { bubbles: true }));
			el.dispatchEvent(new Event("change", { bubbles: true }));
			return "selected";
		}
	}
	return "no-option";
})()`

// SelectByText picks the dropdown entry labelled text. It fails with
// browser.ErrOptionNotFound when no entry matches.
func (a *Actions) SelectByText(ctx context.Context, loc browser.Locator, text string, timeout time.Duration) error {
	if err := a.driver.WaitFor(ctx, loc, browser.Present, timeout); err != nil {
		return fmt.Errorf("dropdown %s: %w", loc, err)
	}

	var status string
	script := fmt.Sprintf(selectScript, loc.JSExpr(), browser.JSQuote(text))
	if err := a.driver.Evaluate(ctx, script, &status); err != nil {
		return fmt.Errorf("could not select %q in %s: %w", text, loc, err)
	}

	switch status {
	case "selected":
		a.logger.Debug("Option selected.", zap.Stringer("selector", loc), zap.String("text", text))
		return nil
	case "no-option":
		return fmt.Errorf("%w: %q in %s", browser.ErrOptionNotFound, text, loc)
	default:
		return fmt.Errorf("dropdown %s disappeared before selection", loc)
	}
}

// Hover waits for loc to be visible, then moves the pointer over it without
// clicking, which opens hover-activated menus.
func (a *Actions) Hover(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	if err := a.driver.WaitFor(ctx, loc, browser.Visible, timeout); err != nil {
		return fmt.Errorf("hover target %s: %w", loc, err)
	}
	return a.driver.Hover(ctx, loc)
}

// SwitchToNewWindow focuses a window whose handle is not in known. Callers
// pass the handles that were open before the action that opened the window.
// The window must already exist; there is no polling.
func (a *Actions) SwitchToNewWindow(ctx context.Context, known ...string) (string, error) {
	handles, err := a.driver.WindowHandles(ctx)
	if err != nil {
		return "", err
	}
	seen := make(map[string]bool, len(known))
	for _, h := range known {
		seen[h] = true
	}
	var candidates []string
	for _, h := range handles {
		if !seen[h] {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w (%d window(s) open)", browser.ErrNoNewWindow, len(handles))
	}
	if len(candidates) > 1 {
		a.logger.Warn("More than one new window is open, using the first.", zap.Strings("handles", candidates))
	}
	if err := a.driver.SwitchToWindow(ctx, candidates[0]); err != nil {
		return "", err
	}
	return candidates[0], nil
}

// ReturnToWindow closes the current window and focuses mainHandle again.
func (a *Actions) ReturnToWindow(ctx context.Context, mainHandle string) error {
	if err := a.driver.CloseWindow(ctx); err != nil {
		return err
	}
	return a.driver.SwitchToWindow(ctx, mainHandle)
}
