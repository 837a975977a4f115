package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/ui"
)

// helpStyle rewrites one regexp match; m holds the full match followed by
// its submatches.
type helpStyle struct {
	re    *regexp.Regexp
	style func(m []string) string
}

// helpStyles run in order over Cobra's plain help text.
var helpStyles = []helpStyle{
	{
		// "Diagram:", "Flags:" and other section headers. Usage stays plain.
		re: regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`),
		style: func(m []string) string {
			if m[1] == "Usage:" {
				return m[0]
			}
			return ui.RenderAccent(m[1])
		},
	},
	{
		// "  render      Render a story graph"
		re: regexp.MustCompile(`(?m)^(  )(\S+)(  )`),
		style: func(m []string) string {
			return m[1] + ui.RenderCommand(m[2]) + m[3]
		},
	},
	{
		// "--mode string", "--limit int"
		re: regexp.MustCompile(`(--?\S+\s+)(string|int|float|duration|strings|stringArray)\b`),
		style: func(m []string) string {
			return m[1] + ui.RenderMuted(m[2])
		},
	},
	{
		re: regexp.MustCompile(`\(default "?[^")]*"?\)`),
		style: func(m []string) string {
			return ui.RenderMuted(m[0])
		},
	},
}

// colorizedHelpFunc renders Cobra's usage into a buffer and styles it when
// stdout takes color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		if noColor || !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		out := cmd.OutOrStdout()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelpOutput(buf.String()))
	}
}

func colorizeHelpOutput(s string) string {
	for _, h := range helpStyles {
		s = h.re.ReplaceAllStringFunc(s, func(match string) string {
			m := h.re.FindStringSubmatch(match)
			if m == nil {
				return match
			}
			return h.style(m)
		})
	}
	return s
}
