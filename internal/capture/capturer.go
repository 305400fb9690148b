package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
	"github.com/xkilldash9x/puzzleshot/internal/config"
)

// ErrInvalidImage is returned when captured bytes are not a PNG.
var ErrInvalidImage = errors.New("captured data is not a PNG image")

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// IsPNG reports whether data starts with the PNG file signature.
func IsPNG(data []byte) bool {
	return len(data) > len(pngSignature) && bytes.HasPrefix(data, pngSignature)
}

// Status is the result of one capture.
type Status string

const (
	StatusSaved    Status = "saved"
	StatusTimedOut Status = "timed_out"
)

// Outcome records what a capture produced.
type Outcome struct {
	Path   string
	Status Status
	Bytes  int
}

// Options tunes a Capturer.
type Options struct {
	CanvasTimeout  time.Duration
	ElementTimeout time.Duration
	// FailOnTimeout turns a canvas that never stabilizes into an error
	// instead of a logged warning.
	FailOnTimeout bool
}

// OptionsFromConfig maps the capture section of the configuration.
func OptionsFromConfig(cfg config.CaptureConfig) Options {
	return Options{
		CanvasTimeout:  cfg.CanvasTimeout,
		ElementTimeout: cfg.ElementTimeout,
		FailOnTimeout:  cfg.TimeoutPolicy == config.TimeoutPolicyFail,
	}
}

// Capturer persists canvas pixels and element screenshots.
type Capturer struct {
	driver     browser.Driver
	fs         afero.Fs
	stabilizer *Stabilizer
	opts       Options
	logger     *zap.Logger
}

// NewCapturer wires a Capturer. fs receives every written file.
func NewCapturer(driver browser.Driver, fs afero.Fs, stabilizer *Stabilizer, opts Options, logger *zap.Logger) *Capturer {
	if opts.CanvasTimeout <= 0 {
		opts.CanvasTimeout = 60 * time.Second
	}
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = 20 * time.Second
	}
	return &Capturer{
		driver:     driver,
		fs:         fs,
		stabilizer: stabilizer,
		opts:       opts,
		logger:     logger.Named("capture"),
	}
}

// CaptureCanvas waits for the canvas at loc to stop changing, then writes its
// PNG export to path. A canvas that is not in the DOM within ElementTimeout
// is an error. When the canvas never settles no file is written and the
// outcome is StatusTimedOut; the error is nil unless FailOnTimeout is set.
func (c *Capturer) CaptureCanvas(ctx context.Context, loc browser.Locator, path string) (Outcome, error) {
	out := Outcome{Path: path}

	if err := c.driver.WaitFor(ctx, loc, browser.Present, c.opts.ElementTimeout); err != nil {
		return out, fmt.Errorf("canvas %s: %w", loc, err)
	}

	snapshot := func(ctx context.Context) (*string, error) {
		var data *string
		if err := c.driver.Evaluate(ctx, snapshotScript(loc), &data); err != nil {
			return nil, err
		}
		return data, nil
	}

	res, err := c.stabilizer.Wait(ctx, snapshot, c.opts.CanvasTimeout)
	if err != nil {
		if !errors.Is(err, ErrStabilizationTimeout) {
			return out, fmt.Errorf("canvas %s: %w", loc, err)
		}
		out.Status = StatusTimedOut
		if c.opts.FailOnTimeout {
			return out, fmt.Errorf("canvas %s: %w", loc, err)
		}
		c.logger.Warn("Timed out waiting for the canvas to stabilize.",
			zap.Stringer("selector", loc),
			zap.String("path", path),
			zap.Int("snapshots", res.Snapshots),
			zap.Duration("elapsed", res.Elapsed))
		return out, nil
	}
	c.logger.Debug("Canvas stabilized.", zap.Stringer("selector", loc), zap.Int("snapshots", res.Snapshots), zap.Duration("elapsed", res.Elapsed))

	var dataURL *string
	if err := c.driver.Evaluate(ctx, exportScript(loc), &dataURL); err != nil {
		return out, fmt.Errorf("could not export canvas %s: %w", loc, err)
	}
	if dataURL == nil {
		return out, fmt.Errorf("canvas %s disappeared before export", loc)
	}

	img, err := decodePNGDataURL(*dataURL)
	if err != nil {
		return out, fmt.Errorf("canvas %s: %w", loc, err)
	}
	if err := c.write(path, img); err != nil {
		return out, err
	}

	out.Status = StatusSaved
	out.Bytes = len(img)
	c.logger.Info("Canvas screenshot saved.", zap.String("path", path), zap.Int("bytes", len(img)))
	return out, nil
}

// CaptureElement waits for loc to be present and writes a screenshot of it
// to path. Tables render synchronously, so there is no stabilization.
func (c *Capturer) CaptureElement(ctx context.Context, loc browser.Locator, path string) (Outcome, error) {
	out := Outcome{Path: path}

	if err := c.driver.WaitFor(ctx, loc, browser.Present, c.opts.ElementTimeout); err != nil {
		return out, fmt.Errorf("capture target %s: %w", loc, err)
	}

	img, err := c.driver.Screenshot(ctx, loc)
	if err != nil {
		return out, err
	}
	if !IsPNG(img) {
		return out, fmt.Errorf("element %s: %w", loc, ErrInvalidImage)
	}
	if err := c.write(path, img); err != nil {
		return out, err
	}

	out.Status = StatusSaved
	out.Bytes = len(img)
	c.logger.Info("Table screenshot saved.", zap.String("path", path), zap.Int("bytes", len(img)))
	return out, nil
}

func decodePNGDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, pngDataURLPrefix) {
		return nil, fmt.Errorf("%w: unexpected data URL header", ErrInvalidImage)
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngDataURLPrefix))
	if err != nil {
		return nil, fmt.Errorf("could not decode canvas data: %w", err)
	}
	if !IsPNG(img) {
		return nil, ErrInvalidImage
	}
	return img, nil
}

// write creates the parent directories of path and replaces any existing file.
func (c *Capturer) write(path string, data []byte) error {
	if err := c.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create output directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(c.fs, path, data, os.FileMode(0o644)); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}
