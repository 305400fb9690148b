package capture

import (
	"fmt"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
)

const pngDataURLPrefix = "data:image/png;base64,"

// snapshotScript returns the canvas pixels as a data URL, or null when the
// canvas is not in the DOM yet.
func snapshotScript(loc browser.Locator) string {
	return fmt.Sprintf(`(function() {
	const canvas = %s;
	if (!canvas || typeof canvas.toDataURL !== "function") return null;
	return canvas.toDataURL();
})()`, loc.JSExpr())
}

// exportScript returns the canvas content as a PNG data URL.
func exportScript(loc browser.Locator) string {
	return fmt.Sprintf(`(function() {
	const canvas = %s;
	if (!canvas || typeof canvas.toDataURL !== "function") return null;
	return canvas.toDataURL("image/png");
})()`, loc.JSExpr())
}
