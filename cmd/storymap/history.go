package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/store"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history <map>",
	Short: "List archived merge reports for a story map",
	Long: `List the merge reports archived for a story map, newest first.

The map name is the graph file's stem ("shop" for shop.json). With
--snapshot the latest archived story graph is printed instead. Needs
archive.driver and archive.dsn in the config.`,
	GroupID: "system",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		snapshot, _ := cmd.Flags().GetBool("snapshot")

		archive, err := openArchive(cfg.Archive)
		if err != nil {
			return err
		}
		if archive == nil {
			return fmt.Errorf("no archive configured (set archive.driver and archive.dsn)")
		}
		defer archive.Close()

		if snapshot {
			snap, err := archive.LatestSnapshot(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("latest snapshot of %s: %w", args[0], err)
			}
			if !jsonOutput {
				fmt.Fprintln(os.Stderr, ui.RenderMuted(fmt.Sprintf("%s from %s at %s, %d stories",
					snap.ID, snap.Source, snap.CreatedAt.Local().Format("2006-01-02 15:04:05"), snap.StoryCount)))
			}
			var g json.RawMessage = snap.Graph
			return printJSON(os.Stdout, g)
		}

		reports, err := archive.ListReports(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, reportSummaries(reports))
		}
		printHistory(os.Stdout, reports)
		return nil
	},
}

type reportSummary struct {
	ID             string `json:"id"`
	CreatedAt      string `json:"created_at"`
	ExtractedFile  string `json:"extracted_file"`
	OriginalFile   string `json:"original_file"`
	ExactMatches   int    `json:"exact_matches"`
	FuzzyMatches   int    `json:"fuzzy_matches"`
	NewStories     int    `json:"new_stories"`
	RemovedStories int    `json:"removed_stories"`
	LargeDeletions int    `json:"large_deletions"`
}

func reportSummaries(reports []*store.ReportRecord) []reportSummary {
	out := make([]reportSummary, 0, len(reports))
	for _, r := range reports {
		out = append(out, reportSummary{
			ID:             r.ID,
			CreatedAt:      r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			ExtractedFile:  r.ExtractedFile,
			OriginalFile:   r.OriginalFile,
			ExactMatches:   r.ExactMatches,
			FuzzyMatches:   r.FuzzyMatches,
			NewStories:     r.NewStories,
			RemovedStories: r.RemovedStories,
			LargeDeletions: r.LargeDeletions,
		})
	}
	return out
}

func printHistory(w io.Writer, reports []*store.ReportRecord) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No archived reports.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tEXACT\tFUZZY\tNEW\tREMOVED\tDELETIONS")
	for _, r := range reports {
		deletions := fmt.Sprint(r.LargeDeletions)
		if r.LargeDeletions > 0 {
			deletions = ui.RenderWarn(deletions)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.ExactMatches,
			r.FuzzyMatches,
			r.NewStories,
			r.RemovedStories,
			deletions,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d reports\n", len(reports))
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of reports (0 for all)")
	historyCmd.Flags().Bool("snapshot", false, "print the latest archived story graph")
}
