package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/config"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

var (
	configPath string
	jsonOutput bool
	verbose    bool
	noColor    bool

	cfg    *config.Config
	logger *slog.Logger
)

// skipConfig marks commands that must run without a loadable config.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:           "storymap <command>",
	Short:         "Render story graphs to draw.io story maps and read them back",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		if cmd.Annotations[skipConfig] != "" {
			cfg = config.Default()
		} else {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = c
		}
		logger = newLogger(cfg, verbose)
		slog.SetDefault(logger)
		return nil
	},
}

func newLogger(c *config.Config, verbose bool) *slog.Logger {
	level, err := c.Log.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./"+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "diagram", Title: "Diagram:"},
		&cobra.Group{ID: "graph", Title: "Story graph:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Diagram
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(watchCmd)

	// Story graph
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(epicCmd)
	rootCmd.AddCommand(featureCmd)
	rootCmd.AddCommand(storyCmd)
	rootCmd.AddCommand(userCmd)

	// System
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderError("Error:"), err)
		os.Exit(1)
	}
}
