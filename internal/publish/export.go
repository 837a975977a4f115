package publish

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/storymap/internal/merge"
	"github.com/alfredjeanlab/storymap/internal/storygraph"
)

// BundleName is the artifact name ExportBundle output is published under.
const BundleName = "bundle.jsonl"

// header is the first JSONL record written by ExportBundle.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Map        string    `json:"map"`
	EpicCount  int       `json:"epic_count"`
	StoryCount int       `json:"story_count"`
	HasLayout  bool      `json:"has_layout"`
	HasReport  bool      `json:"has_report"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Bundle is everything known about one story map after a sync.
type Bundle struct {
	Map    string
	Graph  *storygraph.Graph
	Layout storygraph.Layout
	Report *merge.Report
}

// ExportBundle writes b as JSONL to w: a header, the graph, then the layout
// and report when present.
func ExportBundle(w io.Writer, b Bundle) error {
	if b.Graph == nil {
		return fmt.Errorf("export bundle %s: no story graph", b.Map)
	}
	stories := 0
	b.Graph.WalkStories(func(*storygraph.Epic, *storygraph.Feature, *storygraph.Story) { stories++ })

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    "1",
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		Map:        b.Map,
		EpicCount:  len(b.Graph.Epics),
		StoryCount: stories,
		HasLayout:  b.Layout != nil,
		HasReport:  b.Report != nil,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	if err := enc.Encode(record{Type: "graph", Data: b.Graph}); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if b.Layout != nil {
		if err := enc.Encode(record{Type: "layout", Data: b.Layout}); err != nil {
			return fmt.Errorf("encode layout: %w", err)
		}
	}
	if b.Report != nil {
		if err := enc.Encode(record{Type: "report", Data: b.Report}); err != nil {
			return fmt.Errorf("encode report %s: %w", b.Report.ID, err)
		}
	}
	return nil
}
