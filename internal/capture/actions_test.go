package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
	"github.com/xkilldash9x/puzzleshot/internal/mocks"
)

func setupActions(t *testing.T, page *mocks.FakePage) (*Actions, *mocks.FakeDriver) {
	t.Helper()
	d := mocks.NewFakeDriver()
	loadPage(t, d, page)
	return NewActions(d, zaptest.NewLogger(t)), d
}

func TestActions_Click(t *testing.T) {
	ctx := context.Background()
	solve := &mocks.FakeElement{}
	disabled := &mocks.FakeElement{Disabled: true}
	a, _ := setupActions(t, mocks.NewFakePage("").Add("#solve", solve).Add("#locked", disabled))

	require.NoError(t, a.Click(ctx, browser.CSS("#solve"), time.Second))
	assert.Equal(t, 1, solve.Clicks)

	err := a.Click(ctx, browser.CSS("#locked"), time.Second)
	assert.ErrorIs(t, err, browser.ErrElementNotInteractable)
	assert.Zero(t, disabled.Clicks)

	err = a.Click(ctx, browser.CSS("#missing"), time.Second)
	assert.ErrorIs(t, err, browser.ErrElementNotInteractable)
}

func TestActions_ClickIfPresent(t *testing.T) {
	ctx := context.Background()
	consent := &mocks.FakeElement{}
	a, _ := setupActions(t, mocks.NewFakePage("").Add(".fc-cta-consent", consent))

	clicked, err := a.ClickIfPresent(ctx, browser.CSS(".fc-cta-consent"), time.Second)
	require.NoError(t, err)
	assert.True(t, clicked)
	assert.Equal(t, 1, consent.Clicks)

	clicked, err = a.ClickIfPresent(ctx, browser.CSS(".not-there"), time.Second)
	require.NoError(t, err, "an absent optional element is not an error")
	assert.False(t, clicked)
}

func TestActions_ClickIfPresent_ContextCancelled(t *testing.T) {
	a, _ := setupActions(t, mocks.NewFakePage(""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.ClickIfPresent(ctx, browser.CSS(".fc-cta-consent"), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestActions_SelectByText(t *testing.T) {
	ctx := context.Background()
	dropdown := &mocks.FakeElement{Options: []string{"Facile", "Moyen", "Difficile", "Diabolique"}}
	a, _ := setupActions(t, mocks.NewFakePage("").Add("#options > p:nth-child(3) > select", dropdown))
	loc := browser.CSS("#options > p:nth-child(3) > select")

	require.NoError(t, a.SelectByText(ctx, loc, "Difficile", time.Second))
	assert.Equal(t, "Difficile", dropdown.Selected)

	err := a.SelectByText(ctx, loc, "Expert", time.Second)
	assert.ErrorIs(t, err, browser.ErrOptionNotFound)
	assert.Equal(t, "Difficile", dropdown.Selected)

	err = a.SelectByText(ctx, browser.CSS("#nope"), "Moyen", time.Second)
	assert.ErrorIs(t, err, browser.ErrWaitTimeout)
}

func TestActions_Hover(t *testing.T) {
	menu := &mocks.FakeElement{}
	hidden := &mocks.FakeElement{Hidden: true}
	a, _ := setupActions(t, mocks.NewFakePage("").Add("#gamemenu", menu).Add("#hidden", hidden))

	require.NoError(t, a.Hover(context.Background(), browser.CSS("#gamemenu"), time.Second))
	assert.Equal(t, 1, menu.Hovers)
	assert.Zero(t, menu.Clicks)

	err := a.Hover(context.Background(), browser.CSS("#hidden"), time.Second)
	assert.ErrorIs(t, err, browser.ErrWaitTimeout)
}

func TestActions_Windows(t *testing.T) {
	ctx := context.Background()
	a, d := setupActions(t, mocks.NewFakePage(""))
	main := d.MainWindow()

	_, err := a.SwitchToNewWindow(ctx, main)
	assert.ErrorIs(t, err, browser.ErrNoNewWindow)
	assert.Equal(t, main, d.CurrentWindow())

	solution := d.OpenWindow(mocks.NewFakePage("https://puzzle.test/solution"))
	h, err := a.SwitchToNewWindow(ctx, main)
	require.NoError(t, err)
	assert.Equal(t, solution, h)
	assert.Equal(t, "https://puzzle.test/solution", d.CurrentPage().URL)

	require.NoError(t, a.ReturnToWindow(ctx, main))
	assert.Equal(t, main, d.CurrentWindow())
	handles, err := d.WindowHandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{main}, handles)
}

func TestActions_SwitchToNewWindowSkipsKnown(t *testing.T) {
	ctx := context.Background()
	a, d := setupActions(t, mocks.NewFakePage(""))
	main := d.MainWindow()
	stale := d.OpenWindow(mocks.NewFakePage("https://puzzle.test/stale"))

	_, err := a.SwitchToNewWindow(ctx, main, stale)
	assert.ErrorIs(t, err, browser.ErrNoNewWindow)
	assert.Equal(t, main, d.CurrentWindow())

	fresh := d.OpenWindow(mocks.NewFakePage("https://puzzle.test/solution"))
	h, err := a.SwitchToNewWindow(ctx, main, stale)
	require.NoError(t, err)
	assert.Equal(t, fresh, h)
	assert.Equal(t, "https://puzzle.test/solution", d.CurrentPage().URL)
}
