package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/merge"
	"github.com/alfredjeanlab/storymap/internal/pipeline"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

// reportListLimit caps the new and removed story listings.
const reportListLimit = 10

var reportCmd = &cobra.Command{
	Use:   "report <extracted.json> [original.json]",
	Short: "Show or generate a merge report",
	Long: `Show the merge report written beside an extracted story graph.

With an original graph the report is generated first, overwriting any
report already beside the extracted file.`,
	GroupID: "diagram",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done := newService(cmd.Context())
		defer done()

		var r *merge.Report
		var err error
		if len(args) == 2 {
			r, _, err = svc.ReportFiles(cmd.Context(), args[0], args[1])
		} else {
			r, err = svc.LoadReport(pipeline.ReportPath(args[0]))
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(os.Stdout, r)
		}
		printReport(os.Stdout, r)
		return nil
	},
}

func rule(w io.Writer, ch string) {
	fmt.Fprintln(w, strings.Repeat(ch, 80))
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	rule(w, "-")
	fmt.Fprintln(w, ui.RenderAccent(title))
	rule(w, "-")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func storyPath(s merge.StoryRecord) string {
	return fmt.Sprintf("%s (%s > %s)", s.Name, s.EpicName, s.FeatureName)
}

// printReport writes the human-readable form of r.
func printReport(w io.Writer, r *merge.Report) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintln(w, ui.RenderBold("STORY GRAPH MERGE REPORT"))
	rule(w, "=")
	if r.ID != "" {
		fmt.Fprintf(w, "Report: %s\n", r.ID)
	}
	fmt.Fprintf(w, "Generated: %s\n", r.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Extracted: %s\n", r.ExtractedFile)
	fmt.Fprintf(w, "Original: %s\n", r.OriginalFile)

	s := r.Summary
	section(w, "SUMMARY")
	fmt.Fprintf(w, "Total Extracted Stories: %d\n", s.TotalExtractedStories)
	fmt.Fprintf(w, "Total Original Stories: %d\n", s.TotalOriginalStories)
	fmt.Fprintf(w, "Exact Matches: %d\n", s.ExactMatches)
	fmt.Fprintf(w, "Fuzzy Matches: %d\n", s.FuzzyMatches)
	fmt.Fprintf(w, "New Stories (in extracted): %d\n", s.NewStories)
	fmt.Fprintf(w, "Removed Stories (in original only): %d\n", s.RemovedStories)

	if len(r.FuzzyMatches) > 0 {
		section(w, "FUZZY MATCHES (Require Review)")
		for _, m := range r.FuzzyMatches {
			fmt.Fprintf(w, "\nExtracted: %s\n", m.Extracted.Name)
			fmt.Fprintf(w, "  Epic: %s | Feature: %s\n", m.Extracted.EpicName, m.Extracted.FeatureName)
			fmt.Fprintf(w, "Original: %s\n", m.Original.Name)
			fmt.Fprintf(w, "  Epic: %s | Feature: %s\n", m.Original.EpicName, m.Original.FeatureName)
			fmt.Fprintf(w, "Confidence: %s\n", ui.RenderWarn(fmt.Sprintf("%.2f%%", m.Confidence*100)))
			fmt.Fprintf(w, "Has Steps: %s\n", yesNo(m.Original.HasField("Steps")))
			fmt.Fprintf(w, "Has Acceptance Criteria: %s\n", yesNo(m.Original.HasField("acceptance_criteria")))
		}
	}

	printStoryList(w, "NEW STORIES (No match in original)", r.NewStories)
	printStoryList(w, "REMOVED STORIES (In original but not in extracted)", r.RemovedStories)
	printDeletions(w, r.LargeDeletions)

	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintln(w, "NEXT STEPS:")
	fmt.Fprintln(w, "1. Review fuzzy matches above")
	fmt.Fprintln(w, "2. Confirm which matches are correct")
	fmt.Fprintf(w, "3. Run %s to apply changes\n", ui.RenderCommand("storymap merge"))
	rule(w, "=")
}

func printStoryList(w io.Writer, title string, stories []merge.StoryRecord) {
	if len(stories) == 0 {
		return
	}
	section(w, title)
	for i, s := range stories {
		if i == reportListLimit {
			fmt.Fprintf(w, "  ... and %d more\n", len(stories)-reportListLimit)
			break
		}
		fmt.Fprintf(w, "  - %s\n", storyPath(s))
	}
}

func printDeletions(w io.Writer, d *merge.Deletions) {
	if d.Empty() {
		return
	}
	banner := func(ch, title string) {
		fmt.Fprintln(w)
		rule(w, ch)
		fmt.Fprintln(w, ui.RenderWarn(title))
		rule(w, ch)
	}

	if len(d.MissingEpics) > 0 {
		banner("!", "WARNING: ENTIRE EPICS MISSING FROM DIAGRAM")
		for _, e := range d.MissingEpics {
			fmt.Fprintf(w, "  MISSING EPIC: %s\n", e.Name)
			fmt.Fprintf(w, "    - %d features\n", e.FeatureCount)
			fmt.Fprintf(w, "    - %d stories\n", e.StoryCount)
			fmt.Fprintln(w, "    - This may be an accidental deletion!")
		}
		rule(w, "!")
	}
	if len(d.MissingFeatures) > 0 {
		banner("!", "WARNING: ENTIRE FEATURES MISSING FROM DIAGRAM")
		for _, f := range d.MissingFeatures {
			fmt.Fprintf(w, "  MISSING FEATURE: %s > %s\n", f.Epic, f.Name)
			fmt.Fprintf(w, "    - %d stories\n", f.StoryCount)
			fmt.Fprintln(w, "    - This may be an accidental deletion!")
		}
		rule(w, "!")
	}
	printLosses(w, banner, "EPICS", d.EpicsWithManyMissingStories)
	printLosses(w, banner, "FEATURES", d.FeaturesWithManyMissingStories)
}

func printLosses(w io.Writer, banner func(ch, title string), kind string, losses []merge.StoryLoss) {
	if len(losses) == 0 {
		return
	}
	banner("-", "WARNING: "+kind+" WITH MANY MISSING STORIES")
	for _, l := range losses {
		name := l.Name
		if l.Epic != "" {
			name = l.Epic + " > " + l.Name
		}
		fmt.Fprintf(w, "  %s: %s\n", strings.TrimSuffix(kind, "S"), name)
		fmt.Fprintf(w, "    - Original: %d stories\n", l.OriginalCount)
		fmt.Fprintf(w, "    - Extracted: %d stories\n", l.ExtractedCount)
		fmt.Fprintf(w, "    - Missing: %d stories (%.1f%%)\n", l.MissingCount, l.MissingRatio*100)
	}
	rule(w, "-")
}
