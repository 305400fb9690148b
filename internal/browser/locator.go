// internal/browser/locator.go
package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LocatorKind tells how a Locator's value is interpreted.
type LocatorKind int

const (
	KindCSS LocatorKind = iota
	KindXPath
)

func (k LocatorKind) String() string {
	if k == KindXPath {
		return "xpath"
	}
	return "css"
}

// Locator identifies a DOM element by CSS selector or XPath expression.
type Locator struct {
	Kind  LocatorKind
	Value string
}

// CSS returns a CSS selector locator.
func CSS(selector string) Locator { return Locator{Kind: KindCSS, Value: selector} }

// XPath returns an XPath locator.
func XPath(expr string) Locator { return Locator{Kind: KindXPath, Value: expr} }

// ParseLocator reads the selector notation used in configuration files:
// "xpath=" and "css=" prefixes are explicit, a bare value starting with "/"
// or "(" is XPath and anything else is CSS.
func ParseLocator(s string) Locator {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "xpath="):
		return XPath(strings.TrimPrefix(s, "xpath="))
	case strings.HasPrefix(s, "css="):
		return CSS(strings.TrimPrefix(s, "css="))
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "("):
		return XPath(s)
	default:
		return CSS(s)
	}
}

// String renders the locator in the prefixed notation ParseLocator accepts.
func (l Locator) String() string {
	return l.Kind.String() + "=" + l.Value
}

// IsZero reports whether the locator has no value.
func (l Locator) IsZero() bool { return l.Value == "" }

// JSExpr returns a JavaScript expression evaluating to the first matching
// element, or null.
func (l Locator) JSExpr() string {
	if l.Kind == KindXPath {
		return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", JSQuote(l.Value))
	}
	return fmt.Sprintf("document.querySelector(%s)", JSQuote(l.Value))
}

// JSQuote encodes v as a JavaScript literal, for splicing strings into
// injected scripts.
func JSQuote(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// Condition is the readiness state a wait requires of an element.
type Condition int

const (
	// Present means attached to the DOM.
	Present Condition = iota
	// Visible means attached, rendered and with a non-empty box.
	Visible
	// Clickable means visible and enabled.
	Clickable
)

func (c Condition) String() string {
	switch c {
	case Present:
		return "present"
	case Visible:
		return "visible"
	case Clickable:
		return "clickable"
	default:
		return fmt.Sprintf("condition(%d)", int(c))
	}
}
