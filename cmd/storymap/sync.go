package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/diagram"
	"github.com/alfredjeanlab/storymap/internal/pipeline"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync <diagram.drawio>...",
	Short: "Read story maps back into story graphs",
	Long: `Read one or more draw.io story maps back into story graphs.

Each diagram is written to <stem>-extracted.json with its layout sidecar.
With --original a merge report comparing the extraction to the original
graph is written beside it; review it with "storymap report" and apply it
with "storymap merge".`,
	GroupID: "diagram",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeName, _ := cmd.Flags().GetString("mode")
		original, _ := cmd.Flags().GetString("original")
		out, _ := cmd.Flags().GetString("output")
		pub, _ := cmd.Flags().GetBool("publish")
		mode, err := diagram.ParseMode(modeName)
		if err != nil {
			return err
		}
		if len(args) > 1 && (original != "" || out != "") {
			return fmt.Errorf("--original and --output take a single diagram")
		}

		reqs := make([]pipeline.SyncRequest, len(args))
		for i, path := range args {
			reqs[i] = pipeline.SyncRequest{Diagram: path, Output: out, Original: original, Mode: mode, Publish: pub}
		}

		svc, done := newService(cmd.Context())
		defer done()
		results, err := svc.SyncFiles(cmd.Context(), reqs)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(os.Stdout, results)
		}
		for _, res := range results {
			printSyncResult(res)
		}
		return nil
	},
}

func printSyncResult(res *pipeline.SyncResult) {
	fmt.Printf("%s %s -> %s (%d stories)\n", ui.RenderSuccess("Synced"), res.Diagram, res.Graph, res.Stories)
	printWarnings(os.Stderr, res.Warnings)
	if res.Merge == nil {
		return
	}
	s := res.Merge.Summary
	fmt.Printf("  report %s: %d exact, %d fuzzy, %d new, %d removed\n",
		res.Report, s.ExactMatches, s.FuzzyMatches, s.NewStories, s.RemovedStories)
	if n := res.Merge.LargeDeletions.Count(); n > 0 {
		fmt.Printf("  %s %d large deletion(s) flagged; run storymap report %s\n",
			ui.RenderWarn("warning:"), n, res.Graph)
	}
}

func init() {
	syncCmd.Flags().String("mode", string(diagram.ModeOutline), "layout mode the diagram was rendered in")
	syncCmd.Flags().String("original", "", "original story graph to compare against")
	syncCmd.Flags().StringP("output", "o", "", "story graph to write (default <diagram>-extracted.json)")
	syncCmd.Flags().Bool("publish", false, "publish the results to the configured destinations")
}
