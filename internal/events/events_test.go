package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/storymap/internal/merge"
)

func TestNoopPublisher(t *testing.T) {
	pub := &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicGraphSynced, GraphSynced{}); err != nil {
		t.Fatalf("Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close returned unexpected error: %v", err)
	}
}

func TestPublishersImplementPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNewPublisher(t *testing.T) {
	pub, err := NewPublisher("")
	if err != nil {
		t.Fatalf("NewPublisher(\"\"): %v", err)
	}
	if _, ok := pub.(*NoopPublisher); !ok {
		t.Errorf("empty URL gave %T, want *NoopPublisher", pub)
	}

	url := startTestNATS(t)
	pub, err = NewPublisher(url)
	if err != nil {
		t.Fatalf("NewPublisher(%q): %v", url, err)
	}
	defer pub.Close()
	if _, ok := pub.(*NATSPublisher); !ok {
		t.Errorf("NATS URL gave %T, want *NATSPublisher", pub)
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicMergeReported, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := MergeReported{Map: "shop", ReportID: "mr-abc", Summary: merge.Summary{FuzzyMatches: 2}}
	if err := pub.Publish(context.Background(), TopicMergeReported, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got MergeReported
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ReportID != "mr-abc" || got.Summary.FuzzyMatches != 2 {
			t.Errorf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishAllTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 5)
	sub, err := nc.ChanSubscribe(TopicAll, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	cases := []struct {
		topic string
		event any
	}{
		{TopicDiagramRendered, DiagramRendered{Map: "shop", Mode: "outline", Stories: 3}},
		{TopicGraphSynced, GraphSynced{Map: "shop", Warnings: []string{"orphan"}}},
		{TopicMergeReported, MergeReported{Map: "shop"}},
		{TopicMergeApplied, MergeApplied{Map: "shop", Stories: 3}},
		{TopicDeletionsFlagged, DeletionsFlagged{Map: "shop", Deletions: &merge.Deletions{}}},
	}
	for _, tc := range cases {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}
	pub.conn.Flush()

	for _, tc := range cases {
		select {
		case msg := <-ch:
			if msg.Subject != tc.topic {
				t.Errorf("subject = %q, want %q", msg.Subject, tc.topic)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", tc.topic)
		}
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicGraphSynced, GraphSynced{}); err == nil {
		t.Error("expected error publishing with a canceled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Publishing after close should fail.
	err = pub.Publish(context.Background(), TopicGraphSynced, GraphSynced{})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}
