package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alfredjeanlab/storymap/internal/storygraph"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "%s %s\n", ui.RenderWarn("warning:"), msg)
	}
}

// printTree writes the graph as an indented outline in display order.
func printTree(w io.Writer, g *storygraph.Graph) {
	for _, e := range g.OrderedEpics() {
		fmt.Fprintf(w, "%s%s\n", ui.RenderBold(e.Name), treeSuffix(e.Users, e.EstimatedStories, e.StoryCount()))
		for _, f := range e.OrderedFeatures() {
			fmt.Fprintf(w, "  %s%s\n", ui.RenderAccent(f.Name), treeSuffix(f.Users, f.StoryCount, len(f.Stories)))
			for _, s := range f.OrderedStories() {
				indent := "    "
				if s.Order.IsRefinement() {
					indent = "      "
				}
				line := fmt.Sprintf("%s%s %s", indent, ui.RenderMuted(s.Order.String()), s.Name)
				if s.Type != "" && s.Type != storygraph.StoryTypeUser {
					line += " " + ui.RenderMuted("("+s.Type.String()+")")
				}
				if len(s.Users) > 0 {
					line += " " + ui.RenderMuted("["+strings.Join(s.Users, ", ")+"]")
				}
				fmt.Fprintln(w, line)
			}
		}
	}
	for _, inc := range g.OrderedIncrements() {
		n := 0
		for _, e := range inc.Epics {
			n += e.StoryCount()
		}
		fmt.Fprintf(w, "%s %s %s\n", ui.RenderWarn("increment"), inc.Name, ui.RenderMuted(fmt.Sprintf("(priority %d, %d stories)", inc.Priority, n)))
	}
}

func treeSuffix(users []string, estimate *int, enumerated int) string {
	var parts []string
	if len(users) > 0 {
		parts = append(parts, "["+strings.Join(users, ", ")+"]")
	}
	if estimate != nil && *estimate != enumerated {
		parts = append(parts, fmt.Sprintf("%d of ~%d stories", enumerated, *estimate))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + ui.RenderMuted(strings.Join(parts, " "))
}
