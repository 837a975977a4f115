package events

import (
	"context"

	"github.com/alfredjeanlab/storymap/internal/merge"
)

// Event topic constants
const (
	TopicDiagramRendered  = "storymap.diagram.rendered"
	TopicGraphSynced      = "storymap.graph.synced"
	TopicMergeReported    = "storymap.merge.reported"
	TopicMergeApplied     = "storymap.merge.applied"
	TopicDeletionsFlagged = "storymap.deletions.flagged"

	// TopicAll matches every storymap event.
	TopicAll = "storymap.>"
)

// Event types

type DiagramRendered struct {
	Map     string `json:"map"`
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	Epics   int    `json:"epics"`
	Stories int    `json:"stories"`
}

type GraphSynced struct {
	Map      string   `json:"map"`
	Diagram  string   `json:"diagram"`
	Path     string   `json:"path"`
	Mode     string   `json:"mode"`
	Stories  int      `json:"stories"`
	Warnings []string `json:"warnings,omitempty"`
}

type MergeReported struct {
	Map      string        `json:"map"`
	ReportID string        `json:"report_id"`
	Path     string        `json:"path"`
	Summary  merge.Summary `json:"summary"`
}

type MergeApplied struct {
	Map      string `json:"map"`
	ReportID string `json:"report_id,omitempty"`
	Path     string `json:"path"`
	Stories  int    `json:"stories"`
}

type DeletionsFlagged struct {
	Map       string           `json:"map"`
	ReportID  string           `json:"report_id"`
	Deletions *merge.Deletions `json:"deletions"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// NewPublisher connects to NATS at url, or returns a NoopPublisher when url
// is empty.
func NewPublisher(url string) (Publisher, error) {
	if url == "" {
		return &NoopPublisher{}, nil
	}
	return NewNATSPublisher(url)
}
