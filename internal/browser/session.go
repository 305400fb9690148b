// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/puzzleshot/internal/config"
)

const closeTimeout = 15 * time.Second

// tab is a chromedp context attached to one page target.
type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ChromeSession drives a local Chrome over the DevTools protocol. Window
// handles are CDP target IDs.
type ChromeSession struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCancel context.CancelFunc
	// browserCtx is bound to the first tab, which is the main window.
	browserCtx    context.Context
	browserCancel context.CancelFunc
	mainHandle    string

	mu            sync.Mutex
	tabs          map[string]*tab
	currentHandle string
	closed        bool
}

var _ Driver = (*ChromeSession)(nil)

// NewChromeSession launches Chrome and attaches to its first tab. The
// session lives until Close or until parent is canceled.
func NewChromeSession(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*ChromeSession, error) {
	log := logger.Named("chromedp")

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, DefaultAllocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Debugf),
	)

	// The first Run starts the browser process and creates the first tab.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	c := chromedp.FromContext(browserCtx)
	if c == nil || c.Target == nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chrome started without a page target")
	}
	main := string(c.Target.TargetID)

	s := &ChromeSession{
		logger:        log,
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		mainHandle:    main,
		tabs:          map[string]*tab{main: {ctx: browserCtx, cancel: browserCancel}},
		currentHandle: main,
	}
	log.Info("Browser session started.", zap.String("main_window", main), zap.Bool("headless", cfg.Headless))
	return s, nil
}

// current returns the context of the selected tab.
func (s *ChromeSession) current() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	t, ok := s.tabs[s.currentHandle]
	if !ok {
		return nil, ErrNoWindow
	}
	return t.ctx, nil
}

// runActions executes chromedp actions on the current tab, bounded by both
// the tab's lifetime and ctx.
func (s *ChromeSession) runActions(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := s.current()
	if err != nil {
		return err
	}
	runCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func queryOption(loc Locator) chromedp.QueryOption {
	if loc.Kind == KindXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// Navigate loads url and waits for the load event.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL", zap.String("url", url))

	navTimeout := s.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	if err := s.runActions(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %s: %w", url, navTimeout, err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// WaitFor polls the DOM until loc satisfies cond.
func (s *ChromeSession) WaitFor(ctx context.Context, loc Locator, cond Condition, timeout time.Duration) error {
	by := queryOption(loc)

	var actions chromedp.Tasks
	switch cond {
	case Present:
		actions = chromedp.Tasks{chromedp.WaitReady(loc.Value, by)}
	case Visible:
		actions = chromedp.Tasks{chromedp.WaitVisible(loc.Value, by)}
	case Clickable:
		actions = chromedp.Tasks{
			chromedp.WaitVisible(loc.Value, by),
			chromedp.WaitEnabled(loc.Value, by),
		}
	default:
		return fmt.Errorf("unknown wait condition %s", cond)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.runActions(waitCtx, actions)
	if err != nil && waitCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return fmt.Errorf("%w: %s not %s after %s", ErrWaitTimeout, loc, cond, timeout)
	}
	return err
}

// Click clicks the first element matching loc.
func (s *ChromeSession) Click(ctx context.Context, loc Locator) error {
	if err := s.runActions(ctx, chromedp.Click(loc.Value, queryOption(loc))); err != nil {
		return fmt.Errorf("click action failed for %s: %w", loc, err)
	}
	return nil
}

// Hover scrolls loc into view and dispatches a single mouse move to the
// centre of its content box.
func (s *ChromeSession) Hover(ctx context.Context, loc Locator) error {
	by := queryOption(loc)
	var nodes []*cdp.Node

	err := s.runActions(ctx,
		chromedp.ScrollIntoView(loc.Value, by),
		chromedp.Nodes(loc.Value, &nodes, by, chromedp.AtLeast(1)),
		chromedp.ActionFunc(func(c context.Context) error {
			box, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(c)
			if err != nil {
				return fmt.Errorf("could not read box model: %w", err)
			}
			x, y, err := quadCenter(box.Content)
			if err != nil {
				return err
			}
			return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(c)
		}),
	)
	if err != nil {
		return fmt.Errorf("hover action failed for %s: %w", loc, err)
	}
	return nil
}

func quadCenter(q dom.Quad) (float64, float64, error) {
	if len(q) != 8 {
		return 0, 0, fmt.Errorf("unexpected quad with %d coordinates", len(q))
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4, nil
}

// Evaluate runs script in the current document.
func (s *ChromeSession) Evaluate(ctx context.Context, script string, res interface{}) error {
	return s.runActions(ctx, chromedp.Evaluate(script, res))
}

// Screenshot captures the element's box as PNG.
func (s *ChromeSession) Screenshot(ctx context.Context, loc Locator) ([]byte, error) {
	var buf []byte
	if err := s.runActions(ctx, chromedp.Screenshot(loc.Value, &buf, queryOption(loc))); err != nil {
		return nil, fmt.Errorf("screenshot failed for %s: %w", loc, err)
	}
	return buf, nil
}

// WindowHandles lists the IDs of all open page targets.
func (s *ChromeSession) WindowHandles(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	runCtx, cancel := CombineContext(s.browserCtx, ctx)
	defer cancel()

	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		return nil, fmt.Errorf("could not list targets: %w", err)
	}
	handles := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Type == "page" {
			handles = append(handles, string(info.TargetID))
		}
	}
	return handles, nil
}

// CurrentWindow returns the selected handle, empty after CloseWindow.
func (s *ChromeSession) CurrentWindow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentHandle
}

// SwitchToWindow selects handle, attaching to the target on first use.
func (s *ChromeSession) SwitchToWindow(ctx context.Context, handle string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if _, ok := s.tabs[handle]; ok {
		s.currentHandle = handle
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(target.ID(handle)))
	attachCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	if err := chromedp.Run(attachCtx); err != nil {
		tabCancel()
		return fmt.Errorf("could not attach to window %s: %w", handle, err)
	}

	s.mu.Lock()
	s.tabs[handle] = &tab{ctx: tabCtx, cancel: tabCancel}
	s.currentHandle = handle
	s.mu.Unlock()

	s.logger.Debug("Switched window.", zap.String("handle", handle))
	return nil
}

// CloseWindow closes the current tab. The main window cannot be closed this
// way; use Close.
func (s *ChromeSession) CloseWindow(ctx context.Context) error {
	s.mu.Lock()
	handle := s.currentHandle
	t, ok := s.tabs[handle]
	s.mu.Unlock()

	if !ok {
		return ErrNoWindow
	}
	if handle == s.mainHandle {
		return fmt.Errorf("refusing to close the main window %s", handle)
	}

	runCtx, cancel := CombineContext(t.ctx, ctx)
	err := chromedp.Run(runCtx, page.Close())
	cancel()
	t.cancel()

	s.mu.Lock()
	delete(s.tabs, handle)
	s.currentHandle = ""
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("could not close window %s: %w", handle, err)
	}
	return nil
}

// Close shuts Chrome down. Later calls are no-ops.
func (s *ChromeSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	tabs := s.tabs
	s.tabs = nil
	s.mu.Unlock()

	for handle, t := range tabs {
		if handle != s.mainHandle {
			t.cancel()
		}
	}

	// chromedp.Cancel closes the browser gracefully and waits for the process.
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.browserCtx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	case <-time.After(closeTimeout):
		err = fmt.Errorf("timed out closing browser after %s", closeTimeout)
	}

	s.browserCancel()
	s.allocCancel()
	s.logger.Info("Browser session closed.")
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("browser shutdown: %w", err)
	}
	return nil
}
