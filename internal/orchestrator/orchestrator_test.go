// File: internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
	"github.com/xkilldash9x/puzzleshot/internal/capture"
	"github.com/xkilldash9x/puzzleshot/internal/config"
	"github.com/xkilldash9x/puzzleshot/internal/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- Test Fixture --

type orchestratorTestFixture struct {
	Logger   *zap.Logger
	Config   *config.Config
	Driver   *mocks.FakeDriver
	Fs       afero.Fs
	Starts   int
	StartErr error
}

func (f *orchestratorTestFixture) factory(ctx context.Context) (browser.Driver, error) {
	f.Starts++
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	return f.Driver, nil
}

// setupTest creates a fresh fixture for each test to ensure isolation.
func setupTest(t *testing.T) *orchestratorTestFixture {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Capture.OutputDir = "out"
	cfg.Capture.PollInterval = time.Millisecond
	cfg.Capture.WindowSettle = 0

	d := mocks.NewFakeDriver()
	mocks.InstallPuzzleSites(d, cfg.Sites)
	return &orchestratorTestFixture{
		Logger: zaptest.NewLogger(t),
		Config: cfg,
		Driver: d,
		Fs:     afero.NewMemMapFs(),
	}
}

func (f *orchestratorTestFixture) run(t *testing.T, ctx context.Context, tasks []Task) (Report, error) {
	t.Helper()
	orch, err := New(f.Config, f.Logger, f.factory, f.Fs, tasks)
	require.NoError(t, err)
	return orch.Run(ctx)
}

func outputNames(r Report) []string {
	var names []string
	for _, t := range r.Tasks {
		for _, o := range t.Outcomes {
			names = append(names, filepath.Base(o.Path))
		}
	}
	return names
}

// -- Test Cases --

func TestNewOrchestrator(t *testing.T) {
	fixture := setupTest(t)

	t.Run("should create orchestrator with valid dependencies", func(t *testing.T) {
		orch, err := New(fixture.Config, fixture.Logger, fixture.factory, fixture.Fs, DefaultTasks())
		require.NoError(t, err)
		assert.NotNil(t, orch)
		assert.Zero(t, fixture.Starts, "the session starts in Run")
	})

	t.Run("should return error with nil dependencies", func(t *testing.T) {
		_, err := New(nil, fixture.Logger, fixture.factory, fixture.Fs, DefaultTasks())
		assert.Error(t, err, "Should fail with nil config")

		_, err = New(fixture.Config, nil, fixture.factory, fixture.Fs, DefaultTasks())
		assert.Error(t, err, "Should fail with nil logger")

		_, err = New(fixture.Config, fixture.Logger, nil, fixture.Fs, DefaultTasks())
		assert.Error(t, err, "Should fail with nil factory")

		_, err = New(fixture.Config, fixture.Logger, fixture.factory, nil, DefaultTasks())
		assert.Error(t, err, "Should fail with nil filesystem")

		_, err = New(fixture.Config, fixture.Logger, fixture.factory, fixture.Fs, nil)
		assert.Error(t, err, "Should fail without tasks")
	})
}

func TestOrchestrator_FullRun(t *testing.T) {
	fixture := setupTest(t)

	report, err := fixture.run(t, context.Background(), DefaultTasks())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Tasks, 8)
	for _, tr := range report.Tasks {
		assert.NoError(t, tr.Err, tr.Name)
		assert.Len(t, tr.Outcomes, 2, tr.Name)
	}

	expected := []string{
		"loopy.png", "loopy_solution.png",
		"sudoku_killer.png", "sudoku_killer_solution.png",
		"sudoku_moyen.png", "sudoku_moyen_solution.png",
		"sudoku_difficile.png", "sudoku_difficile_solution.png",
		"sudoku_diabolique.png", "sudoku_diabolique_solution.png",
		"irregulier_moyen.png", "irregulier_moyen_solution.png",
		"unequal_extreme.png", "unequal_extreme_solution.png",
		"adjacent_tricky.png", "adjacent_tricky_solution.png",
	}
	assert.Equal(t, expected, outputNames(report))
	assert.Equal(t, len(expected), report.Saved())
	assert.Zero(t, report.Failed())

	files, err := afero.ReadDir(fixture.Fs, "out")
	require.NoError(t, err)
	assert.Len(t, files, len(expected))
	for _, name := range expected {
		data, err := afero.ReadFile(fixture.Fs, filepath.Join("out", name))
		require.NoError(t, err)
		assert.True(t, capture.IsPNG(data), name)
	}

	assert.Equal(t, 1, fixture.Starts)
	assert.Equal(t, 1, fixture.Driver.Closed)
	consent := "click " + browser.ParseLocator(fixture.Config.Sites.Consent.Button).String()
	assert.Len(t, fixture.Driver.CallsWithPrefix(consent), 1)
}

func TestOrchestrator_FailingTaskDoesNotStopRun(t *testing.T) {
	fixture := setupTest(t)
	sites := fixture.Config.Sites
	build := fixture.Driver.Sites[sites.Killer.URL]
	fixture.Driver.Sites[sites.Killer.URL] = func() *mocks.FakePage {
		p := build()
		p.Element(sites.Killer.Solve).OnClick = nil
		return p
	}

	report, err := fixture.run(t, context.Background(), DefaultTasks()[1:3])
	require.NoError(t, err, "task failures are not run failures")

	require.Len(t, report.Tasks, 2)
	assert.ErrorIs(t, report.Tasks[0].Err, browser.ErrNoNewWindow)
	assert.NoError(t, report.Tasks[1].Err)
	assert.Equal(t, []string{"sudoku_killer.png", "sudoku_moyen.png", "sudoku_moyen_solution.png"}, outputNames(report))
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, fixture.Driver.Closed)
}

func TestOrchestrator_PanicIsIsolated(t *testing.T) {
	fixture := setupTest(t)
	sites := fixture.Config.Sites
	build := fixture.Driver.Sites[sites.Loopy.URL]
	fixture.Driver.Sites[sites.Loopy.URL] = func() *mocks.FakePage {
		p := build()
		p.Element(sites.Loopy.Solve).OnClick = func(*mocks.FakeDriver) { panic("renderer crashed") }
		return p
	}

	tasks := []Task{{Recipe: "loopy"}, {Recipe: "unequal_adjacent", Params: DefaultTasks()[6].Params}}
	report, err := fixture.run(t, context.Background(), tasks)
	require.NoError(t, err)

	require.Len(t, report.Tasks, 2)
	require.Error(t, report.Tasks[0].Err)
	assert.Contains(t, report.Tasks[0].Err.Error(), "renderer crashed")
	assert.NoError(t, report.Tasks[1].Err)
	assert.Equal(t, 1, fixture.Driver.Closed)
}

func TestOrchestrator_TimeoutPolicy(t *testing.T) {
	endless := func(fixture *orchestratorTestFixture) {
		sites := fixture.Config.Sites
		build := fixture.Driver.Sites[sites.Loopy.URL]
		fixture.Driver.Sites[sites.Loopy.URL] = func() *mocks.FakePage {
			p := build()
			frames := make([]string, 10000)
			for i := range frames {
				frames[i] = time.Duration(i + 1).String()
			}
			p.Element(sites.Loopy.Canvas).SetFrames(frames...)
			return p
		}
		fixture.Config.Capture.CanvasTimeout = 20 * time.Millisecond
	}

	t.Run("warn records the timeout and continues", func(t *testing.T) {
		fixture := setupTest(t)
		endless(fixture)

		report, err := fixture.run(t, context.Background(), []Task{{Recipe: "loopy"}})
		require.NoError(t, err)
		require.Len(t, report.Tasks, 1)
		assert.NoError(t, report.Tasks[0].Err)
		require.NotEmpty(t, report.Tasks[0].Outcomes)
		assert.Equal(t, capture.StatusTimedOut, report.Tasks[0].Outcomes[0].Status)
		exists, _ := afero.Exists(fixture.Fs, filepath.Join("out", "loopy.png"))
		assert.False(t, exists)
	})

	t.Run("fail aborts the task", func(t *testing.T) {
		fixture := setupTest(t)
		endless(fixture)
		fixture.Config.Capture.TimeoutPolicy = config.TimeoutPolicyFail

		report, err := fixture.run(t, context.Background(), []Task{{Recipe: "loopy"}})
		require.NoError(t, err)
		assert.ErrorIs(t, report.Tasks[0].Err, capture.ErrStabilizationTimeout)
		assert.Empty(t, fixture.Driver.CallsWithPrefix("click"))
	})
}

func TestOrchestrator_SessionStartFailure(t *testing.T) {
	fixture := setupTest(t)
	startErr := errors.New("chrome not found")
	fixture.StartErr = startErr

	report, err := fixture.run(t, context.Background(), DefaultTasks())
	require.Error(t, err)
	assert.ErrorIs(t, err, startErr, "Error from the session factory should be propagated")
	assert.Empty(t, report.Tasks)
	assert.Zero(t, fixture.Driver.Closed)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	fixture := setupTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := fixture.run(t, ctx, DefaultTasks())
	require.NoError(t, err)
	assert.Empty(t, report.Tasks)
	assert.Equal(t, 1, fixture.Driver.Closed)
}

func TestTasksFromConfig(t *testing.T) {
	tasks, err := TasksFromConfig(config.RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTasks(), tasks)

	tasks, err = TasksFromConfig(config.RunConfig{Tasks: []config.TaskConfig{
		{Recipe: "sudoku_classic", Difficulty: "Facile"},
		{Recipe: "unequal_adjacent", PuzzleType: "adjacent", Difficulty: "Easy"},
	}})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "sudoku_classic/Facile", tasks[0].Name())
	assert.Equal(t, "unequal_adjacent/adjacent/Easy", tasks[1].Name())

	_, err = TasksFromConfig(config.RunConfig{Tasks: []config.TaskConfig{{Recipe: "kakuro"}}})
	assert.Error(t, err)
}
