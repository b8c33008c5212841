package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alfredjeanlab/muster/internal/ui"
	"github.com/spf13/cobra"
)

// helpRule restyles every match of re. style receives the submatches.
type helpRule struct {
	re    *regexp.Regexp
	style func(parts []string) string
}

// helpRules are applied to cobra's plain help text in order.
var helpRules = []helpRule{
	// Section headers ("Events:", "Flags:"), unindented and ending in ':'.
	{
		re:    regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`),
		style: func(p []string) string { return ui.RenderAccent(strings.TrimSpace(p[1])) },
	},
	// Command names in a command list: two-space indent, name, gap.
	{
		re:    regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(  )`),
		style: func(p []string) string { return p[1] + ui.RenderCommand(p[2]) + p[3] },
	},
	// Flag value types, e.g. "--url string", "--amount int".
	{
		re:    regexp.MustCompile(`(--?[\w-]+\s+)(string|int|duration|strings)\b`),
		style: func(p []string) string { return p[1] + ui.RenderMuted(p[2]) },
	},
	// Defaults, e.g. (default "http://localhost:8080").
	{
		re:    regexp.MustCompile(`\(default [^)]*\)`),
		style: func(p []string) string { return ui.RenderMuted(p[0]) },
	},
}

// colorizedHelpFunc returns a cobra help function that colors the default
// help output when stdout supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, r := range helpRules {
		s = r.re.ReplaceAllStringFunc(s, func(match string) string {
			return r.style(r.re.FindStringSubmatch(match))
		})
	}
	return s
}
