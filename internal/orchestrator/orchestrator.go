// File: internal/orchestrator/orchestrator.go
// Description: Owns the browser session of a capture run and executes the
// task list against it, one task at a time.

package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
	"github.com/xkilldash9x/puzzleshot/internal/capture"
	"github.com/xkilldash9x/puzzleshot/internal/config"
	"github.com/xkilldash9x/puzzleshot/internal/recipes"
)

// TaskReport is the result of one task.
type TaskReport struct {
	Name     string
	Outcomes []capture.Outcome
	Err      error
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID string
	Tasks []TaskReport
}

// Failed counts the tasks that ended with an error.
func (r Report) Failed() int {
	n := 0
	for _, t := range r.Tasks {
		if t.Err != nil {
			n++
		}
	}
	return n
}

// Saved counts the files written across all tasks.
func (r Report) Saved() int {
	n := 0
	for _, t := range r.Tasks {
		for _, o := range t.Outcomes {
			if o.Status == capture.StatusSaved {
				n++
			}
		}
	}
	return n
}

// Orchestrator runs a task list on a single browser session.
type Orchestrator struct {
	cfg     *config.Config
	logger  *zap.Logger
	factory browser.Factory
	fs      afero.Fs
	tasks   []Task
}

// New creates an Orchestrator. The session is only started by Run.
func New(cfg *config.Config, logger *zap.Logger, factory browser.Factory, fs afero.Fs, tasks []Task) (*Orchestrator, error) {
	if cfg == nil || logger == nil || factory == nil || fs == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("cannot initialize orchestrator without tasks")
	}
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger.Named("orchestrator"),
		factory: factory,
		fs:      fs,
		tasks:   tasks,
	}, nil
}

// Run starts the browser, executes every task in order and closes the
// browser. Task failures are recorded in the report and never abort the
// run; only failing to prepare the output directory or to start the
// session is returned as an error.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	logger := o.logger.With(zap.String("run_id", report.RunID))

	if err := o.fs.MkdirAll(o.cfg.Capture.OutputDir, 0o755); err != nil {
		return report, fmt.Errorf("could not create output directory %s: %w", o.cfg.Capture.OutputDir, err)
	}

	driver, err := o.factory(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to start browser session: %w", err)
	}
	defer func() {
		if err := driver.Close(browser.Detach(ctx)); err != nil {
			logger.Warn("Error while closing the browser session.", zap.Error(err))
		}
	}()

	session := recipes.Session{Driver: driver, MainWindow: driver.CurrentWindow()}
	env := recipes.NewEnv(session, o.cfg, o.fs, logger)
	logger.Info("Capture run started.",
		zap.Int("tasks", len(o.tasks)),
		zap.String("output_dir", o.cfg.Capture.OutputDir),
		zap.String("main_window", session.MainWindow))

	for i, task := range o.tasks {
		if ctx.Err() != nil {
			logger.Warn("Run cancelled, skipping remaining tasks.", zap.Int("skipped", len(o.tasks)-i))
			break
		}
		report.Tasks = append(report.Tasks, o.runTask(ctx, env, task, logger))
	}

	o.logSummary(logger, report)
	return report, nil
}

// runTask is the failure boundary around one recipe: errors and panics are
// logged with the task name and recorded.
func (o *Orchestrator) runTask(ctx context.Context, env *recipes.Env, task Task, logger *zap.Logger) (tr TaskReport) {
	tr.Name = task.Name()
	start := time.Now()
	logger = logger.With(zap.String("task", tr.Name))

	defer func() {
		if r := recover(); r != nil {
			tr.Err = fmt.Errorf("panic in task %s: %v", tr.Name, r)
			logger.Error("Task panicked.", zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
		}
		tr.Duration = time.Since(start)
	}()

	recipe, err := recipes.Lookup(task.Recipe)
	if err != nil {
		tr.Err = err
		logger.Error("Task failed.", zap.Error(err))
		return tr
	}

	logger.Info("Task started.")
	tr.Outcomes, tr.Err = recipe(ctx, env, task.Params)
	if tr.Err != nil {
		logger.Error("Task failed.", zap.Error(tr.Err))
		return tr
	}
	logger.Info("Task finished.", zap.Int("captures", len(tr.Outcomes)))
	return tr
}

func (o *Orchestrator) logSummary(logger *zap.Logger, report Report) {
	for _, t := range report.Tasks {
		var saved, timedOut []string
		for _, out := range t.Outcomes {
			if out.Status == capture.StatusTimedOut {
				timedOut = append(timedOut, out.Path)
			} else {
				saved = append(saved, out.Path)
			}
		}
		fields := []zap.Field{
			zap.String("task", t.Name),
			zap.Duration("duration", t.Duration),
			zap.Strings("saved", saved),
		}
		if len(timedOut) > 0 {
			fields = append(fields, zap.Strings("timed_out", timedOut))
		}
		if t.Err != nil {
			fields = append(fields, zap.Error(t.Err))
		}
		logger.Info("Task result.", fields...)
	}
	logger.Info("Capture run finished.",
		zap.Int("tasks", len(report.Tasks)),
		zap.Int("failed", report.Failed()),
		zap.Int("files_saved", report.Saved()))
}
