// Package capture holds the browser-agnostic steps of a puzzle recipe. It
// waits for elements before acting on them, decides when an animated canvas
// has stopped drawing and writes canvas pixels or element screenshots as PNG
// files.
package capture
