package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/pipeline"
)

var treeCmd = &cobra.Command{
	Use:     "tree <graph.json>",
	Short:   "Print a story graph as an outline",
	GroupID: "graph",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := pipeline.New(pipeline.Options{Logger: logger})
		g, err := svc.LoadGraph(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, g)
		}
		printTree(os.Stdout, g)
		return nil
	},
}
