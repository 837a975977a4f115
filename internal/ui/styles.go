package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorCmd     = 250 // light gray
	colorMuted   = 245 // medium gray
	colorWarn    = 214 // orange
	colorError   = 203 // red
	colorSuccess = 114 // green
)

var noColor bool

func paint(code int, s string) string {
	if noColor || s == "" {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderWarn returns s in the warning color, used for review items and
// deletion risks.
func RenderWarn(s string) string { return paint(colorWarn, s) }

// RenderError returns s in the error color.
func RenderError(s string) string { return paint(colorError, s) }

// RenderSuccess returns s in the success color.
func RenderSuccess(s string) string { return paint(colorSuccess, s) }

// RenderBold returns s in bold.
func RenderBold(s string) string {
	if noColor || s == "" {
		return s
	}
	return "\x1b[1m" + s + "\x1b[0m"
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
