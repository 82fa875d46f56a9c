package util

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// IsTTY reports whether stdout is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsInputTTY reports whether stdin is a terminal, so prompts can hide what
// is typed.
func IsInputTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// InitColor disables color for --no-color, NO_COLOR, or piped output.
func InitColor(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !IsTTY() {
		color.NoColor = true
	}
}
