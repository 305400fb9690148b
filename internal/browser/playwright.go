// internal/browser/playwright.go
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/puzzleshot/internal/config"
)

const enabledPollInterval = 100 * time.Millisecond

// PlaywrightSession drives chromium, firefox or webkit through Playwright.
// Pages carry no stable identifier, so each one is given a UUID handle the
// first time it is seen.
type PlaywrightSession struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext

	mu            sync.Mutex
	handles       map[playwright.Page]string
	pages         map[string]playwright.Page
	current       playwright.Page
	currentHandle string
	mainHandle    string
	closed        bool
}

var _ Driver = (*PlaywrightSession)(nil)

// NewPlaywrightSession starts the Playwright driver, launches cfg.Type and
// opens the main page.
func NewPlaywrightSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*PlaywrightSession, error) {
	log := logger.Named("playwright")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Install {
		log.Info("Verifying Playwright browser installation...", zap.String("browser", cfg.Type))
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{cfg.Type}}); err != nil {
			return nil, fmt.Errorf("failed to install playwright browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}

	var browserType playwright.BrowserType
	switch cfg.Type {
	case "firefox":
		browserType = pw.Firefox
	case "webkit":
		browserType = pw.WebKit
	default:
		browserType = pw.Chromium
	}

	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     cfg.Args,
	}
	if cfg.ExecPath != "" {
		launchOptions.ExecutablePath = playwright.String(cfg.ExecPath)
	}
	browser, err := browserType.Launch(launchOptions)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch %s: %w", cfg.Type, err)
	}

	contextOptions := playwright.BrowserNewContextOptions{}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		contextOptions.Viewport = &playwright.Size{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height}
	}
	if cfg.UserAgent != "" {
		contextOptions.UserAgent = playwright.String(cfg.UserAgent)
	}
	bctx, err := browser.NewContext(contextOptions)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if cfg.NavigationTimeout > 0 {
		page.SetDefaultNavigationTimeout(float64(cfg.NavigationTimeout.Milliseconds()))
	}

	s := &PlaywrightSession{
		logger:  log,
		cfg:     cfg,
		pw:      pw,
		browser: browser,
		context: bctx,
		handles: make(map[playwright.Page]string),
		pages:   make(map[string]playwright.Page),
	}
	s.mainHandle = s.register(page)
	s.current = page
	s.currentHandle = s.mainHandle

	log.Info("Browser session started.", zap.String("browser", cfg.Type), zap.String("version", browser.Version()), zap.String("main_window", s.mainHandle))
	return s, nil
}

// register returns page's handle, minting one if needed. Callers hold no lock.
func (s *PlaywrightSession) register(p playwright.Page) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[p]; ok {
		return h
	}
	h := uuid.NewString()
	s.handles[p] = h
	s.pages[h] = p
	return h
}

func (s *PlaywrightSession) page(ctx context.Context) (playwright.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.current == nil {
		return nil, ErrNoWindow
	}
	return s.current, nil
}

func (s *PlaywrightSession) locator(ctx context.Context, loc Locator) (playwright.Locator, error) {
	p, err := s.page(ctx)
	if err != nil {
		return nil, err
	}
	return p.Locator(loc.String()).First(), nil
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// Navigate loads url and waits for the load event.
func (s *PlaywrightSession) Navigate(ctx context.Context, url string) error {
	p, err := s.page(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("Navigating to URL", zap.String("url", url))
	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad}
	if s.cfg.NavigationTimeout > 0 {
		opts.Timeout = millis(remaining(ctx, s.cfg.NavigationTimeout))
	}
	if _, err := p.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// WaitFor waits for the locator state, then for Clickable polls until the
// element is enabled.
func (s *PlaywrightSession) WaitFor(ctx context.Context, loc Locator, cond Condition, timeout time.Duration) error {
	l, err := s.locator(ctx, loc)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)

	state := playwright.WaitForSelectorStateVisible
	if cond == Present {
		state = playwright.WaitForSelectorStateAttached
	}
	if err := l.WaitFor(playwright.LocatorWaitForOptions{State: state, Timeout: millis(timeout)}); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("%w: %s not %s after %s", ErrWaitTimeout, loc, cond, timeout)
		}
		return err
	}
	if cond != Clickable {
		return nil
	}

	for {
		enabled, err := l.IsEnabled()
		if err != nil {
			return err
		}
		if enabled {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s not %s after %s", ErrWaitTimeout, loc, cond, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(enabledPollInterval):
		}
	}
}

// Click clicks the first element matching loc.
func (s *PlaywrightSession) Click(ctx context.Context, loc Locator) error {
	l, err := s.locator(ctx, loc)
	if err != nil {
		return err
	}
	if err := l.Click(playwright.LocatorClickOptions{Timeout: millis(remaining(ctx, 30*time.Second))}); err != nil {
		return fmt.Errorf("click action failed for %s: %w", loc, err)
	}
	return nil
}

// Hover scrolls loc into view and moves the pointer over it.
func (s *PlaywrightSession) Hover(ctx context.Context, loc Locator) error {
	l, err := s.locator(ctx, loc)
	if err != nil {
		return err
	}
	timeout := millis(remaining(ctx, 30*time.Second))
	if err := l.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: timeout}); err != nil {
		return fmt.Errorf("scroll into view failed for %s: %w", loc, err)
	}
	if err := l.Hover(playwright.LocatorHoverOptions{Timeout: timeout}); err != nil {
		return fmt.Errorf("hover action failed for %s: %w", loc, err)
	}
	return nil
}

// Evaluate runs script and round-trips its result through JSON into res.
func (s *PlaywrightSession) Evaluate(ctx context.Context, script string, res interface{}) error {
	p, err := s.page(ctx)
	if err != nil {
		return err
	}
	out, err := p.Evaluate(script)
	if err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	if res == nil {
		return nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("could not encode script result: %w", err)
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("could not decode script result: %w", err)
	}
	return nil
}

// Screenshot captures the element's box as PNG.
func (s *PlaywrightSession) Screenshot(ctx context.Context, loc Locator) ([]byte, error) {
	l, err := s.locator(ctx, loc)
	if err != nil {
		return nil, err
	}
	buf, err := l.Screenshot(playwright.LocatorScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: millis(remaining(ctx, 30*time.Second)),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed for %s: %w", loc, err)
	}
	return buf, nil
}

// WindowHandles lists the handles of all open pages, registering new ones.
func (s *PlaywrightSession) WindowHandles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	var handles []string
	for _, p := range s.context.Pages() {
		if p.IsClosed() {
			continue
		}
		handles = append(handles, s.register(p))
	}
	return handles, nil
}

// CurrentWindow returns the selected handle, empty after CloseWindow.
func (s *PlaywrightSession) CurrentWindow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentHandle
}

// SwitchToWindow selects the page behind handle.
func (s *PlaywrightSession) SwitchToWindow(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	p, ok := s.pages[handle]
	s.mu.Unlock()
	if !ok || p.IsClosed() {
		return fmt.Errorf("unknown window %s", handle)
	}
	if err := p.BringToFront(); err != nil {
		return fmt.Errorf("could not focus window %s: %w", handle, err)
	}

	s.mu.Lock()
	s.current = p
	s.currentHandle = handle
	s.mu.Unlock()
	return nil
}

// CloseWindow closes the current page.
func (s *PlaywrightSession) CloseWindow(ctx context.Context) error {
	p, err := s.page(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	handle := s.currentHandle
	s.mu.Unlock()
	if handle == s.mainHandle {
		return fmt.Errorf("refusing to close the main window %s", handle)
	}

	if err := p.Close(); err != nil {
		return fmt.Errorf("could not close window %s: %w", handle, err)
	}

	s.mu.Lock()
	delete(s.pages, handle)
	delete(s.handles, p)
	s.current = nil
	s.currentHandle = ""
	s.mu.Unlock()
	return nil
}

// Close shuts the browser and the Playwright driver down.
func (s *PlaywrightSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var shutdownErr error
	if err := s.browser.Close(); err != nil {
		s.logger.Error("Failed to close browser instance.", zap.Error(err))
		shutdownErr = fmt.Errorf("failed to close browser: %w", err)
	}
	if err := s.pw.Stop(); err != nil {
		s.logger.Error("Failed to stop Playwright driver.", zap.Error(err))
		if shutdownErr == nil {
			shutdownErr = fmt.Errorf("failed to stop playwright driver: %w", err)
		}
	}
	s.logger.Info("Browser session closed.")
	return shutdownErr
}
