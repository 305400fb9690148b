// internal/browser/errors.go
package browser

import "errors"

var (
	// ErrWaitTimeout is returned by Driver.WaitFor when the element did not
	// reach the requested condition in time.
	ErrWaitTimeout = errors.New("element wait timed out")
	// ErrElementNotInteractable means a click target never became clickable.
	ErrElementNotInteractable = errors.New("element not found or not clickable")
	// ErrOptionNotFound means no <option> carries the requested visible text.
	ErrOptionNotFound = errors.New("no option with the requested visible text")
	// ErrNoNewWindow means no window other than the main one is open.
	ErrNoNewWindow = errors.New("a new window did not open")
	// ErrNoWindow means the current window was closed and no other was selected.
	ErrNoWindow = errors.New("no window selected")
	// ErrSessionClosed is returned by every call made after Close.
	ErrSessionClosed = errors.New("browser session closed")
)
