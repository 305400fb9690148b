// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
)

// -- Driver Mock --

// MockDriver mocks browser.Driver for tests that script individual calls.
type MockDriver struct {
	mock.Mock
}

var _ browser.Driver = (*MockDriver)(nil)

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockDriver) WaitFor(ctx context.Context, loc browser.Locator, cond browser.Condition, timeout time.Duration) error {
	args := m.Called(ctx, loc, cond, timeout)
	return args.Error(0)
}

func (m *MockDriver) Click(ctx context.Context, loc browser.Locator) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *MockDriver) Hover(ctx context.Context, loc browser.Locator) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

// Evaluate returns the configured error. When a second return value is
// configured as func(res interface{}), it is called to fill res.
func (m *MockDriver) Evaluate(ctx context.Context, script string, res interface{}) error {
	args := m.Called(ctx, script, res)
	if len(args) > 1 {
		if fill, ok := args.Get(1).(func(interface{})); ok && fill != nil {
			fill(res)
		}
	}
	return args.Error(0)
}

func (m *MockDriver) Screenshot(ctx context.Context, loc browser.Locator) ([]byte, error) {
	args := m.Called(ctx, loc)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, args.Error(1)
}

func (m *MockDriver) WindowHandles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var handles []string
	if v := args.Get(0); v != nil {
		handles = v.([]string)
	}
	return handles, args.Error(1)
}

func (m *MockDriver) CurrentWindow() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockDriver) SwitchToWindow(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

func (m *MockDriver) CloseWindow(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
