// Package colors provides terminal color support for Muse CLI output,
// with automatic fallback for non-color terminals.
package colors

import (
	"os"

	"golang.org/x/term"
)

// ANSI color codes
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"

	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	gray   = "\033[90m"
)

var enabled = shouldUseColor()

func shouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func wrap(code, text string) string {
	if !enabled {
		return text
	}
	return code + text + reset
}

func Bold(text string) string   { return wrap(bold, text) }
func Dim(text string) string    { return wrap(dim, text) }
func Red(text string) string    { return wrap(red, text) }
func Green(text string) string  { return wrap(green, text) }
func Yellow(text string) string { return wrap(yellow, text) }
func Blue(text string) string   { return wrap(blue, text) }
func Cyan(text string) string   { return wrap(cyan, text) }
func Gray(text string) string   { return wrap(gray, text) }

// SuccessText formats a positive status message.
func SuccessText(text string) string { return wrap(green, text) }

// ErrorText formats a failure status message.
func ErrorText(text string) string { return wrap(red, text) }

// WarningText formats a cautionary status message.
func WarningText(text string) string { return wrap(yellow, text) }
