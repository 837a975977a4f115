package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/config"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show or create the storymap configuration",
	GroupID: "system",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(os.Stdout, cfg)
		}
		return config.Encode(os.Stdout, cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:         "init [path]",
	Short:       "Write a default configuration file",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultPath
		if len(args) == 1 {
			path = args[0]
		} else if configPath != "" {
			path = configPath
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", ui.RenderSuccess("Wrote"), path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
