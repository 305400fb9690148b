package capture

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStabilizationTimeout is returned when a canvas keeps changing until the
// deadline.
var ErrStabilizationTimeout = errors.New("canvas did not stabilize")

// Default stabilization parameters.
const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultStableChecks = 2
)

// SnapshotFunc returns the current encoded pixel content of a canvas. A nil
// snapshot means the canvas is not rendered yet and never counts as unchanged.
type SnapshotFunc func(ctx context.Context) (*string, error)

// StabilizationResult describes one stabilization loop.
type StabilizationResult struct {
	Stable bool
	// Snapshots is the number of snapshot reads performed.
	Snapshots int
	// UnchangedPolls is the final run of consecutive identical snapshots.
	UnchangedPolls int
	Elapsed        time.Duration
}

// Stabilizer debounces canvas snapshots: a canvas is stable once Checks
// consecutive polls return the snapshot seen just before them. The first
// poll has no predecessor, so a static canvas is declared stable on poll
// Checks+1.
type Stabilizer struct {
	Interval time.Duration
	Checks   int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewStabilizer returns a Stabilizer on the wall clock. Non-positive values
// fall back to the defaults.
func NewStabilizer(interval time.Duration, checks int) *Stabilizer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if checks <= 0 {
		checks = DefaultStableChecks
	}
	return &Stabilizer{Interval: interval, Checks: checks, now: time.Now, sleep: sleepContext}
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

// Wait polls snapshot until the canvas is stable or timeout elapses. On
// timeout the result is returned together with ErrStabilizationTimeout.
func (s *Stabilizer) Wait(ctx context.Context, snapshot SnapshotFunc, timeout time.Duration) (StabilizationResult, error) {
	start := s.now()
	deadline := start.Add(timeout)

	var (
		res  StabilizationResult
		last *string
	)
	for {
		current, err := snapshot(ctx)
		if err != nil {
			res.Elapsed = s.now().Sub(start)
			return res, fmt.Errorf("canvas snapshot failed: %w", err)
		}
		res.Snapshots++

		if current != nil && last != nil && *current == *last {
			res.UnchangedPolls++
		} else {
			res.UnchangedPolls = 0
		}
		last = current

		if res.UnchangedPolls >= s.Checks {
			res.Stable = true
			res.Elapsed = s.now().Sub(start)
			return res, nil
		}

		if !s.now().Add(s.Interval).Before(deadline) {
			res.Elapsed = s.now().Sub(start)
			return res, fmt.Errorf("%w after %s (%d snapshots)", ErrStabilizationTimeout, timeout, res.Snapshots)
		}
		if err := s.sleep(ctx, s.Interval); err != nil {
			res.Elapsed = s.now().Sub(start)
			return res, err
		}
	}
}
