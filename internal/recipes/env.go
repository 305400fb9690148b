package recipes

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
	"github.com/xkilldash9x/puzzleshot/internal/capture"
	"github.com/xkilldash9x/puzzleshot/internal/config"
)

// Session is the browser shared by every recipe of a run.
type Session struct {
	Driver     browser.Driver
	MainWindow string
}

// Timeouts bounds the interaction steps of a recipe.
type Timeouts struct {
	Click   time.Duration
	Consent time.Duration
	Hover   time.Duration
	// WindowSettle is the pause between a click that opens a tab and the
	// switch to it. Zero disables the pause.
	WindowSettle time.Duration
}

// Env carries everything a recipe needs. One Env serves a whole run.
type Env struct {
	Session   Session
	Actions   *capture.Actions
	Capturer  *capture.Capturer
	Sites     config.SitesConfig
	OutputDir string
	Consent   *ConsentState
	Timeouts  Timeouts
	Logger    *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewEnv assembles the recipe environment for session from cfg. Files are
// written to fs.
func NewEnv(session Session, cfg *config.Config, fs afero.Fs, logger *zap.Logger) *Env {
	stabilizer := capture.NewStabilizer(cfg.Capture.PollInterval, cfg.Capture.StableChecks)
	return &Env{
		Session:   session,
		Actions:   capture.NewActions(session.Driver, logger),
		Capturer:  capture.NewCapturer(session.Driver, fs, stabilizer, capture.OptionsFromConfig(cfg.Capture), logger),
		Sites:     cfg.Sites,
		OutputDir: cfg.Capture.OutputDir,
		Consent:   NewConsentState(),
		Timeouts: Timeouts{
			Click:        cfg.Capture.ClickTimeout,
			Consent:      cfg.Capture.ConsentTimeout,
			Hover:        cfg.Capture.HoverTimeout,
			WindowSettle: cfg.Capture.WindowSettle,
		},
		Logger: logger.Named("recipes"),
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// outputPath returns the file for name, with the _solution suffix after the
// solve step.
func (e *Env) outputPath(name string, solution bool) string {
	if solution {
		name += "_solution"
	}
	return filepath.Join(e.OutputDir, name+".png")
}

func (e *Env) navigate(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("no URL configured")
	}
	e.Logger.Debug("Navigating.", zap.String("url", url))
	if err := e.Session.Driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("could not load %s: %w", url, err)
	}
	return nil
}

// dismissConsent clicks the cookie overlay on the first visit to the
// configured domain family. Later visits skip the attempt.
func (e *Env) dismissConsent(ctx context.Context) error {
	c := e.Sites.Consent
	if c.Button == "" || !e.Consent.Pending(c.Domain) {
		return nil
	}
	clicked, err := e.Actions.ClickIfPresent(ctx, browser.ParseLocator(c.Button), e.Timeouts.Consent)
	if err != nil {
		return err
	}
	e.Consent.MarkAttempted(c.Domain)
	e.Logger.Debug("Consent overlay handled.", zap.String("domain", c.Domain), zap.Bool("clicked", clicked))
	return nil
}

func (e *Env) click(ctx context.Context, selector string) error {
	return e.Actions.Click(ctx, browser.ParseLocator(selector), e.Timeouts.Click)
}

// openHandles lists the windows open before a click that opens a tab.
func (e *Env) openHandles(ctx context.Context) ([]string, error) {
	handles, err := e.Session.Driver.WindowHandles(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list windows: %w", err)
	}
	return append(handles, e.Session.MainWindow), nil
}

// openSolutionWindow waits for the tab opened by the solve click and focuses
// it. Windows in before are never chosen.
func (e *Env) openSolutionWindow(ctx context.Context, before []string) error {
	if e.Timeouts.WindowSettle > 0 {
		if err := e.sleep(ctx, e.Timeouts.WindowSettle); err != nil {
			return err
		}
	}
	_, err := e.Actions.SwitchToNewWindow(ctx, before...)
	return err
}

// closeSolutionWindow closes the focused tab and returns to the main window.
// It runs on a detached context so the main window is restored even when
// the run is being cancelled.
func (e *Env) closeSolutionWindow(ctx context.Context) error {
	if e.Session.Driver.CurrentWindow() == e.Session.MainWindow {
		return nil
	}
	return e.Actions.ReturnToWindow(browser.Detach(ctx), e.Session.MainWindow)
}

// difficultyName lowercases a difficulty label for use in file names.
func difficultyName(difficulty string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(difficulty), " ", "_"))
}
