package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/diagram"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

var renderCmd = &cobra.Command{
	Use:     "render <graph.json>",
	Short:   "Render a story graph to a draw.io story map",
	GroupID: "diagram",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeName, _ := cmd.Flags().GetString("mode")
		out, _ := cmd.Flags().GetString("output")
		mode, err := diagram.ParseMode(modeName)
		if err != nil {
			return err
		}

		svc, done := newService(cmd.Context())
		defer done()
		res, err := svc.RenderFile(cmd.Context(), args[0], out, mode)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(os.Stdout, res)
		}
		layout := "computed layout"
		if res.UsedSaved {
			layout = "saved layout"
		}
		fmt.Printf("%s %s (%s, %d epics, %d stories, %s)\n",
			ui.RenderSuccess("Rendered"), res.Diagram, res.Mode, res.Epics, res.Stories, layout)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringP("output", "o", "", "diagram file to write (default <graph>.drawio)")
	renderCmd.Flags().String("mode", string(diagram.ModeOutline), "layout mode: outline or increments")
}
