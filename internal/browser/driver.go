// internal/browser/driver.go
package browser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/puzzleshot/internal/config"
)

// Driver is the capability surface the capture layer needs from a browser.
// Implementations drive a real engine (chromedp, playwright) or a fake DOM
// in tests. A Driver is used from a single goroutine.
type Driver interface {
	// Navigate loads url in the current window and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until the element reaches cond, or fails with an error
	// wrapping ErrWaitTimeout once timeout elapses.
	WaitFor(ctx context.Context, loc Locator, cond Condition, timeout time.Duration) error
	Click(ctx context.Context, loc Locator) error
	// Hover scrolls the element into view and moves the pointer over it
	// without pressing any button.
	Hover(ctx context.Context, loc Locator) error
	// Evaluate runs a JavaScript expression and decodes its JSON-compatible
	// result into res. A nil res discards the result.
	Evaluate(ctx context.Context, script string, res interface{}) error
	// Screenshot returns a PNG of the element's box.
	Screenshot(ctx context.Context, loc Locator) ([]byte, error)

	WindowHandles(ctx context.Context) ([]string, error)
	CurrentWindow() string
	SwitchToWindow(ctx context.Context, handle string) error
	// CloseWindow closes the current window. Callers must switch to another
	// window before issuing further page commands.
	CloseWindow(ctx context.Context) error
	// Close shuts the browser down. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Factory starts a new browser session.
type Factory func(ctx context.Context) (Driver, error)

// NewFactory returns the Factory for the configured engine.
func NewFactory(cfg config.BrowserConfig, logger *zap.Logger) (Factory, error) {
	switch cfg.Engine {
	case config.EngineChromedp, "":
		return func(ctx context.Context) (Driver, error) {
			return NewChromeSession(ctx, cfg, logger)
		}, nil
	case config.EnginePlaywright:
		return func(ctx context.Context) (Driver, error) {
			return NewPlaywrightSession(ctx, cfg, logger)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported browser engine %q", cfg.Engine)
	}
}
