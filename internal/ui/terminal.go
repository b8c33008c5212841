package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether ANSI colors should be used on stdout.
// MUSTER_COLOR=always|never wins; otherwise NO_COLOR, CLICOLOR_FORCE and
// CLICOLOR are honoured before falling back to TTY detection.
func ShouldUseColor() bool {
	return colorEnabled(os.Getenv, func() bool { return term.IsTerminal(int(os.Stdout.Fd())) })
}

func colorEnabled(getenv func(string) string, isTTY func() bool) bool {
	switch strings.ToLower(strings.TrimSpace(getenv("MUSTER_COLOR"))) {
	case "always":
		return true
	case "never":
		return false
	}
	// https://no-color.org: any non-empty value disables color.
	if getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(getenv("CLICOLOR")) == "0" {
		return false
	}
	return isTTY()
}
