package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/events"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

var eventsCmd = &cobra.Command{
	Use:   "events [topic]",
	Short: "Tail story map events from NATS",
	Long: `Print story map events as they are published.

The topic defaults to every storymap event (` + events.TopicAll + `).
The NATS server comes from events.nats_url or STORYMAP_NATS_URL.`,
	GroupID: "system",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Events.NATSURL == "" {
			return fmt.Errorf("no NATS server configured (set events.nats_url or STORYMAP_NATS_URL)")
		}
		topic := events.TopicAll
		if len(args) == 1 {
			topic = args[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sub, err := events.NewNATSSubscriber(cfg.Events.NATSURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()
		logger.Debug("subscribed", "topic", topic)

		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(os.Stdout, msg, time.Now())
			}
		}
	},
}

// printEvent writes one event: raw JSON in --json mode, otherwise a
// timestamped line with the compacted payload.
func printEvent(w io.Writer, msg events.Message, at time.Time) {
	if jsonOutput {
		fmt.Fprintf(w, "{\"topic\":%q,\"data\":%s}\n", msg.Topic, bytes.TrimSpace(msg.Data))
		return
	}
	var buf bytes.Buffer
	payload := string(msg.Data)
	if err := json.Compact(&buf, msg.Data); err == nil {
		payload = buf.String()
	}
	fmt.Fprintf(w, "%s %s %s\n", ui.RenderMuted(at.Format("15:04:05")), ui.RenderAccent(msg.Topic), payload)
}
