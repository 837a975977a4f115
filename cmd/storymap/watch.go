package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/diagram"
	"github.com/alfredjeanlab/storymap/internal/pipeline"
	"github.com/alfredjeanlab/storymap/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:     "watch <diagram.drawio>...",
	Short:   "Re-sync diagrams whenever they are saved",
	GroupID: "diagram",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeName, _ := cmd.Flags().GetString("mode")
		original, _ := cmd.Flags().GetString("original")
		pub, _ := cmd.Flags().GetBool("publish")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		mode, err := diagram.ParseMode(modeName)
		if err != nil {
			return err
		}
		if len(args) > 1 && original != "" {
			return fmt.Errorf("--original takes a single diagram")
		}

		reqs := make(map[string]pipeline.SyncRequest, len(args))
		for _, path := range args {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			reqs[abs] = pipeline.SyncRequest{Diagram: path, Original: original, Mode: mode, Publish: pub}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, done := newService(ctx)
		defer done()

		handler := func(ctx context.Context, path string) error {
			req, ok := reqs[path]
			if !ok {
				return nil
			}
			res, err := svc.SyncFile(ctx, req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(os.Stdout, res)
			}
			printSyncResult(res)
			return nil
		}

		w, err := watch.New(args, debounce, handler, logger)
		if err != nil {
			return err
		}
		logger.Info("watching diagrams", "count", len(args))
		return w.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().String("mode", string(diagram.ModeOutline), "layout mode the diagrams were rendered in")
	watchCmd.Flags().String("original", "", "original story graph to compare against on every sync")
	watchCmd.Flags().Bool("publish", false, "publish after every sync")
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before a changed diagram is synced")
}
