// File: internal/mocks/fake_driver.go
package mocks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// FakePNG returns bytes that carry a PNG signature followed by label.
func FakePNG(label string) []byte {
	return append(append([]byte{}, pngSignature...), label...)
}

// FakeElement is one scripted DOM node.
type FakeElement struct {
	Hidden   bool
	Disabled bool

	// Options are the visible texts of a <select>.
	Options  []string
	Selected string

	// Frames is the sequence of canvas snapshots. Each read advances one
	// frame and the last frame repeats. A "" frame reads as null.
	Frames []string
	frame  int

	// Image is returned by Screenshot. Defaults to FakePNG of the locator.
	Image []byte

	// OnClick runs after a successful click.
	OnClick func(d *FakeDriver)

	Clicks int
	Hovers int
}

// SetFrames replaces the canvas animation and restarts it.
func (e *FakeElement) SetFrames(frames ...string) {
	e.Frames = frames
	e.frame = 0
}

func (e *FakeElement) currentFrame() *string {
	if len(e.Frames) == 0 {
		return nil
	}
	f := e.Frames[e.frame]
	if f == "" {
		return nil
	}
	return &f
}

func (e *FakeElement) nextFrame() *string {
	f := e.currentFrame()
	if e.frame < len(e.Frames)-1 {
		e.frame++
	}
	return f
}

// FakePage is the DOM of one window.
type FakePage struct {
	URL      string
	elements map[browser.Locator]*FakeElement
}

// NewFakePage returns an empty page.
func NewFakePage(url string) *FakePage {
	return &FakePage{URL: url, elements: make(map[browser.Locator]*FakeElement)}
}

// Add places el under selector, written in config notation.
func (p *FakePage) Add(selector string, el *FakeElement) *FakePage {
	p.elements[browser.ParseLocator(selector)] = el
	return p
}

// Element returns the node registered for selector, or nil.
func (p *FakePage) Element(selector string) *FakeElement {
	return p.elements[browser.ParseLocator(selector)]
}

// byScript finds the element whose lookup expression appears in script.
func (p *FakePage) byScript(script string) (browser.Locator, *FakeElement) {
	for loc, el := range p.elements {
		if strings.Contains(script, loc.JSExpr()) {
			return loc, el
		}
	}
	return browser.Locator{}, nil
}

// FakeDriver implements browser.Driver over scripted pages. Waits resolve
// immediately: an unmet condition fails at once with browser.ErrWaitTimeout.
type FakeDriver struct {
	mu sync.Mutex

	// Sites builds the page served for a URL on navigation. Unknown URLs
	// load an empty page.
	Sites map[string]func() *FakePage

	windows map[string]*FakePage
	order   []string
	current string
	main    string
	seq     int

	// Calls lists every driver call in order, e.g. "click css=#solve".
	Calls  []string
	Closed int
}

var _ browser.Driver = (*FakeDriver)(nil)

// NewFakeDriver returns a driver with one blank window.
func NewFakeDriver() *FakeDriver {
	d := &FakeDriver{
		Sites:   make(map[string]func() *FakePage),
		windows: make(map[string]*FakePage),
	}
	d.main = d.openLocked(NewFakePage("about:blank"))
	d.current = d.main
	return d
}

// OpenWindow adds a window showing page without focusing it, the way a
// target="_blank" link does.
func (d *FakeDriver) OpenWindow(page *FakePage) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openLocked(page)
}

// OpenSite is OpenWindow with the page registered for url.
func (d *FakeDriver) OpenSite(url string) string {
	return d.OpenWindow(d.build(url))
}

func (d *FakeDriver) openLocked(page *FakePage) string {
	d.seq++
	h := fmt.Sprintf("window-%d", d.seq)
	d.windows[h] = page
	d.order = append(d.order, h)
	return h
}

func (d *FakeDriver) build(url string) *FakePage {
	if b, ok := d.Sites[url]; ok {
		p := b()
		p.URL = url
		return p
	}
	return NewFakePage(url)
}

// Page returns the page shown in window handle.
func (d *FakeDriver) Page(handle string) *FakePage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.windows[handle]
}

// CurrentPage returns the focused page, or nil.
func (d *FakeDriver) CurrentPage() *FakePage {
	return d.Page(d.CurrentWindow())
}

// MainWindow returns the handle of the first window.
func (d *FakeDriver) MainWindow() string { return d.main }

// CallsWithPrefix filters Calls.
func (d *FakeDriver) CallsWithPrefix(prefix string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, c := range d.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (d *FakeDriver) record(format string, args ...interface{}) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

func (d *FakeDriver) page() (*FakePage, error) {
	if d.Closed > 0 {
		return nil, browser.ErrSessionClosed
	}
	p, ok := d.windows[d.current]
	if !ok {
		return nil, browser.ErrNoWindow
	}
	return p, nil
}

func (d *FakeDriver) element(loc browser.Locator) (*FakeElement, error) {
	p, err := d.page()
	if err != nil {
		return nil, err
	}
	el, ok := p.elements[loc]
	if !ok {
		return nil, fmt.Errorf("no element matches %s", loc)
	}
	return el, nil
}

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("navigate %s", url)
	if _, err := d.page(); err != nil {
		return err
	}
	d.windows[d.current] = d.build(url)
	return nil
}

func (d *FakeDriver) WaitFor(ctx context.Context, loc browser.Locator, cond browser.Condition, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("wait %s %s", cond, loc)
	el, err := d.element(loc)
	if err != nil {
		if _, perr := d.page(); perr != nil {
			return perr
		}
		return fmt.Errorf("%w: %s not %s", browser.ErrWaitTimeout, loc, cond)
	}
	switch {
	case cond >= browser.Visible && el.Hidden,
		cond == browser.Clickable && el.Disabled:
		return fmt.Errorf("%w: %s not %s", browser.ErrWaitTimeout, loc, cond)
	}
	return nil
}

func (d *FakeDriver) Click(ctx context.Context, loc browser.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.record("click %s", loc)
	el, err := d.element(loc)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	el.Clicks++
	hook := el.OnClick
	d.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return nil
}

func (d *FakeDriver) Hover(ctx context.Context, loc browser.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("hover %s", loc)
	el, err := d.element(loc)
	if err != nil {
		return err
	}
	el.Hovers++
	return nil
}

// Evaluate understands the scripts the capture package sends: canvas
// snapshots, canvas PNG export and dropdown selection.
func (d *FakeDriver) Evaluate(ctx context.Context, script string, res interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.page()
	if err != nil {
		return err
	}
	loc, el := p.byScript(script)

	var value interface{}
	switch {
	case strings.Contains(script, "selectedIndex"):
		d.record("select %s", loc)
		value = d.selectOption(el, script)
	case strings.Contains(script, `toDataURL("image/png")`):
		d.record("export %s", loc)
		if el != nil {
			if f := el.currentFrame(); f != nil {
				value = "data:image/png;base64," + base64.StdEncoding.EncodeToString(FakePNG(*f))
			}
		}
	case strings.Contains(script, "toDataURL()"):
		d.record("snapshot %s", loc)
		if el != nil {
			if f := el.nextFrame(); f != nil {
				value = *f
			}
		}
	default:
		d.record("evaluate")
	}

	if res == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, res)
}

func (d *FakeDriver) selectOption(el *FakeElement, script string) string {
	if el == nil {
		return "missing"
	}
	for _, opt := range el.Options {
		quoted, _ := json.Marshal(opt)
		if strings.Contains(script, "const want = "+string(quoted)+";") {
			el.Selected = opt
			return "selected"
		}
	}
	return "no-option"
}

func (d *FakeDriver) Screenshot(ctx context.Context, loc browser.Locator) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("screenshot %s", loc)
	el, err := d.element(loc)
	if err != nil {
		return nil, err
	}
	if el.Image != nil {
		return el.Image, nil
	}
	return FakePNG(loc.String()), nil
}

func (d *FakeDriver) WindowHandles(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed > 0 {
		return nil, browser.ErrSessionClosed
	}
	return append([]string(nil), d.order...), nil
}

func (d *FakeDriver) CurrentWindow() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *FakeDriver) SwitchToWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("switch %s", handle)
	if _, ok := d.windows[handle]; !ok {
		return fmt.Errorf("unknown window %q", handle)
	}
	d.current = handle
	return nil
}

func (d *FakeDriver) CloseWindow(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close-window %s", d.current)
	if _, err := d.page(); err != nil {
		return err
	}
	delete(d.windows, d.current)
	for i, h := range d.order {
		if h == d.current {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.current = ""
	return nil
}

func (d *FakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed++
	return nil
}
