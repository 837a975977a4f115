package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/pipeline"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <extracted.json> <original.json>",
	Short: "Apply a merge report to the original story graph",
	Long: `Merge an extracted story graph into the original.

The extracted structure wins. Matched stories keep the original's extra
fields (steps, acceptance criteria, ...) and the union of both user lists.
The merged graph replaces the original unless --output is given.`,
	GroupID: "diagram",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportPath, _ := cmd.Flags().GetString("report")
		out, _ := cmd.Flags().GetString("output")
		pub, _ := cmd.Flags().GetBool("publish")

		svc, done := newService(cmd.Context())
		defer done()
		res, err := svc.MergeFiles(cmd.Context(), pipeline.MergeRequest{
			Extracted: args[0],
			Original:  args[1],
			Report:    reportPath,
			Output:    out,
			Publish:   pub,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(os.Stdout, res)
		}
		fmt.Printf("%s %s (%d stories, %d matched, %d dropped)\n",
			ui.RenderSuccess("Merged"), res.Graph, res.Stories, res.Matched, res.Removed)
		if res.Layout != "" {
			fmt.Printf("  layout %s\n", res.Layout)
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().String("report", "", "merge report to apply (default the report beside the extracted graph)")
	mergeCmd.Flags().StringP("output", "o", "", "merged graph to write (default the original)")
	mergeCmd.Flags().Bool("publish", false, "publish the merged graph to the configured destinations")
}
