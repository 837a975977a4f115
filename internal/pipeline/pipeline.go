// Package pipeline runs story map operations against files on disk.
//
// Each operation reads its inputs whole, transforms them in memory and
// replaces its outputs atomically. Once the files are written the result is
// fanned out to the side channels: NATS events, the snapshot archive and the
// publish destinations. Side-channel failures are logged and never undo or
// fail a completed operation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/storymap/internal/diagram"
	"github.com/alfredjeanlab/storymap/internal/events"
	"github.com/alfredjeanlab/storymap/internal/extract"
	"github.com/alfredjeanlab/storymap/internal/idgen"
	"github.com/alfredjeanlab/storymap/internal/merge"
	"github.com/alfredjeanlab/storymap/internal/publish"
	"github.com/alfredjeanlab/storymap/internal/render"
	"github.com/alfredjeanlab/storymap/internal/storygraph"
	"github.com/alfredjeanlab/storymap/internal/store"
)

// Options wires a Service. Every field is optional.
type Options struct {
	Extract   extract.Options
	Matcher   *merge.Matcher
	Events    events.Publisher
	Archive   store.Archive
	Publisher *publish.Publisher
	Logger    *slog.Logger
}

// Service runs render, sync, report and merge over story map files.
type Service struct {
	extractor *extract.Extractor
	matcher   *merge.Matcher
	events    events.Publisher
	archive   store.Archive
	publisher *publish.Publisher
	logger    *slog.Logger

	newReportID   func() (string, error)
	newSnapshotID func() (string, error)
}

// New creates a Service.
func New(opts Options) *Service {
	s := &Service{
		extractor:     extract.New(opts.Extract),
		matcher:       opts.Matcher,
		events:        opts.Events,
		archive:       opts.Archive,
		publisher:     opts.Publisher,
		logger:        opts.Logger,
		newReportID:   idgen.ReportID,
		newSnapshotID: idgen.SnapshotID,
	}
	if s.matcher == nil {
		s.matcher = merge.NewMatcher()
	}
	if s.events == nil {
		s.events = &events.NoopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// --- Render ---

// RenderResult describes a written diagram.
type RenderResult struct {
	Diagram   string       `json:"diagram"`
	Mode      diagram.Mode `json:"mode"`
	Epics     int          `json:"epics"`
	Stories   int          `json:"stories"`
	UsedSaved bool         `json:"used_saved_layout"`
}

// RenderFile renders the story graph at graphPath to a draw.io file. Saved
// positions are taken from the graph's layout sidecar when it exists. An
// empty diagramPath means DiagramPath(graphPath).
func (s *Service) RenderFile(ctx context.Context, graphPath, diagramPath string, mode diagram.Mode) (*RenderResult, error) {
	if diagramPath == "" {
		diagramPath = DiagramPath(graphPath)
	}
	if mode == "" {
		mode = diagram.ModeOutline
	}
	g, err := readGraph(graphPath)
	if err != nil {
		return nil, err
	}
	layout, err := readLayout(storygraph.LayoutPath(graphPath))
	if err != nil {
		return nil, err
	}

	d, err := render.Render(g, layout, mode)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", graphPath, err)
	}
	data, err := encodeDiagram(d)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(diagramPath, data); err != nil {
		return nil, err
	}

	res := &RenderResult{
		Diagram:   diagramPath,
		Mode:      mode,
		Epics:     len(g.Epics),
		Stories:   countStories(g),
		UsedSaved: layout != nil,
	}
	s.logger.Info("diagram rendered", "path", diagramPath, "mode", mode, "stories", res.Stories)
	s.emit(ctx, events.TopicDiagramRendered, events.DiagramRendered{
		Map:     MapName(graphPath),
		Path:    diagramPath,
		Mode:    mode.String(),
		Epics:   res.Epics,
		Stories: res.Stories,
	})
	return res, nil
}

// --- Sync ---

// SyncRequest names one diagram to read back into a story graph.
type SyncRequest struct {
	Diagram string
	// Output is the story graph to write. Empty means ExtractedPath(Diagram).
	Output string
	// Original, when set, is compared against the extraction and a merge
	// report is written beside Output.
	Original string
	Mode     diagram.Mode
	Publish  bool
}

// SyncResult describes the files a sync wrote.
type SyncResult struct {
	Diagram  string        `json:"diagram"`
	Graph    string        `json:"graph"`
	Layout   string        `json:"layout"`
	Report   string        `json:"report,omitempty"`
	Stories  int           `json:"stories"`
	Warnings []string      `json:"warnings,omitempty"`
	Merge    *merge.Report `json:"-"`
}

// SyncFile extracts one diagram. The graph, its layout sidecar and the merge
// report (when an original is given) are all encoded before any is written.
func (s *Service) SyncFile(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if req.Output == "" {
		req.Output = ExtractedPath(req.Diagram)
	}
	if req.Mode == "" {
		req.Mode = diagram.ModeOutline
	}
	d, err := readDiagram(req.Diagram)
	if err != nil {
		return nil, err
	}
	ext, err := s.extractor.Sync(d, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("sync %s: %w", req.Diagram, err)
	}

	res := &SyncResult{
		Diagram:  req.Diagram,
		Graph:    req.Output,
		Layout:   storygraph.LayoutPath(req.Output),
		Stories:  countStories(ext.Graph),
		Warnings: ext.Warnings,
	}
	graphData, err := encodeGraph(ext.Graph)
	if err != nil {
		return nil, err
	}
	layoutData, err := encodeLayout(ext.Layout)
	if err != nil {
		return nil, err
	}
	outs := []output{{req.Output, graphData}, {res.Layout, layoutData}}

	name := MapName(req.Output)
	var reportData []byte
	if req.Original != "" {
		name = MapName(req.Original)
		orig, err := readGraph(req.Original)
		if err != nil {
			return nil, err
		}
		if res.Merge, err = s.compare(ext.Graph, orig, req.Output, req.Original); err != nil {
			return nil, err
		}
		if reportData, err = encodeReport(res.Merge); err != nil {
			return nil, err
		}
		res.Report = ReportPath(req.Output)
		outs = append(outs, output{res.Report, reportData})
	}
	if err := writeAll(outs...); err != nil {
		return nil, err
	}

	for _, w := range ext.Warnings {
		s.logger.Warn("shape skipped", "diagram", req.Diagram, "reason", w)
	}
	s.logger.Info("diagram synced", "diagram", req.Diagram, "path", req.Output, "stories", res.Stories)
	s.emit(ctx, events.TopicGraphSynced, events.GraphSynced{
		Map:      name,
		Diagram:  req.Diagram,
		Path:     req.Output,
		Mode:     req.Mode.String(),
		Stories:  res.Stories,
		Warnings: ext.Warnings,
	})
	if res.Merge != nil {
		s.reported(ctx, name, res.Report, res.Merge, reportData)
	}
	s.saveSnapshot(ctx, name, "sync", graphData, layoutData, res.Stories)

	if req.Publish {
		s.publish(ctx, name, publish.Bundle{Map: name, Graph: ext.Graph, Layout: ext.Layout, Report: res.Merge},
			artifact("graph.json", graphData),
			artifact("layout.json", layoutData),
			artifact("merge-report.json", reportData))
	}
	return res, nil
}

// SyncFiles runs SyncFile for every request concurrently. Requests must write
// disjoint files. Results are returned in request order; the first failure
// cancels the rest.
func (s *Service) SyncFiles(ctx context.Context, reqs []SyncRequest) ([]*SyncResult, error) {
	seen := make(map[string]string, len(reqs))
	for i := range reqs {
		if reqs[i].Output == "" {
			reqs[i].Output = ExtractedPath(reqs[i].Diagram)
		}
		if prev, ok := seen[reqs[i].Output]; ok {
			return nil, fmt.Errorf("sync: %s and %s both write %s", prev, reqs[i].Diagram, reqs[i].Output)
		}
		seen[reqs[i].Output] = reqs[i].Diagram
	}

	results := make([]*SyncResult, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.SyncFile(ctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// --- Report ---

// ReportFiles compares an extracted graph with the original and writes the
// merge report beside the extracted file. It returns the report and the
// path it was written to.
func (s *Service) ReportFiles(ctx context.Context, extractedPath, originalPath string) (*merge.Report, string, error) {
	ext, err := readGraph(extractedPath)
	if err != nil {
		return nil, "", err
	}
	orig, err := readGraph(originalPath)
	if err != nil {
		return nil, "", err
	}
	r, err := s.compare(ext, orig, extractedPath, originalPath)
	if err != nil {
		return nil, "", err
	}
	data, err := encodeReport(r)
	if err != nil {
		return nil, "", err
	}
	path := ReportPath(extractedPath)
	if err := writeFileAtomic(path, data); err != nil {
		return nil, "", err
	}
	s.reported(ctx, MapName(originalPath), path, r, data)
	return r, path, nil
}

// compare builds a merge report and stamps it with an id and its inputs.
func (s *Service) compare(ext, orig *storygraph.Graph, extractedPath, originalPath string) (*merge.Report, error) {
	r := s.matcher.Compare(ext, orig)
	id, err := s.newReportID()
	if err != nil {
		return nil, fmt.Errorf("generate report id: %w", err)
	}
	r.ID = id
	r.ExtractedFile = extractedPath
	r.OriginalFile = originalPath
	return r, nil
}

// --- Merge ---

// MergeRequest names the files of one merge.
type MergeRequest struct {
	Extracted string
	Original  string
	// Report is the merge report to apply. Empty means the report beside
	// Extracted, or a fresh comparison when there is none.
	Report string
	// Output is the merged graph to write. Empty means Original.
	Output  string
	Publish bool
}

// MergeResult describes a written merged graph.
type MergeResult struct {
	Graph    string `json:"graph"`
	Layout   string `json:"layout,omitempty"`
	ReportID string `json:"report_id,omitempty"`
	Stories  int    `json:"stories"`
	Matched  int    `json:"matched"`
	Removed  int    `json:"removed"`
}

// MergeFiles applies a merge report: the extracted graph enriched with the
// original's passthrough data. The extracted layout sidecar, when present,
// is carried next to the output so the next render keeps hand-made
// positions.
func (s *Service) MergeFiles(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	if req.Output == "" {
		req.Output = req.Original
	}
	ext, err := readGraph(req.Extracted)
	if err != nil {
		return nil, err
	}
	orig, err := readGraph(req.Original)
	if err != nil {
		return nil, err
	}

	var r *merge.Report
	switch {
	case req.Report != "":
		r, err = readReport(req.Report)
	case fileExists(ReportPath(req.Extracted)):
		r, err = readReport(ReportPath(req.Extracted))
	default:
		r, err = s.compare(ext, orig, req.Extracted, req.Original)
	}
	if err != nil {
		return nil, err
	}

	merged := merge.Merge(ext, orig, r)
	graphData, err := encodeGraph(merged)
	if err != nil {
		return nil, err
	}
	outs := []output{{req.Output, graphData}}

	res := &MergeResult{
		Graph:    req.Output,
		ReportID: r.ID,
		Stories:  countStories(merged),
		Matched:  len(r.ExactMatches) + len(r.FuzzyMatches),
		Removed:  len(r.RemovedStories),
	}
	layout, err := readLayout(storygraph.LayoutPath(req.Extracted))
	if err != nil {
		return nil, err
	}
	var layoutData []byte
	if layout != nil {
		if layoutData, err = encodeLayout(layout); err != nil {
			return nil, err
		}
		res.Layout = storygraph.LayoutPath(req.Output)
		outs = append(outs, output{res.Layout, layoutData})
	}
	if err := writeAll(outs...); err != nil {
		return nil, err
	}

	name := MapName(req.Output)
	s.logger.Info("merge applied", "path", req.Output, "report", r.ID, "stories", res.Stories)
	s.emit(ctx, events.TopicMergeApplied, events.MergeApplied{
		Map:      name,
		ReportID: r.ID,
		Path:     req.Output,
		Stories:  res.Stories,
	})
	s.saveSnapshot(ctx, name, "merge", graphData, layoutData, res.Stories)

	if req.Publish {
		s.publish(ctx, name, publish.Bundle{Map: name, Graph: merged, Layout: layout, Report: r},
			artifact("graph.json", graphData),
			artifact("layout.json", layoutData))
	}
	return res, nil
}

// --- Edit ---

// EditFile loads the story graph at path, applies fn, validates the result
// and writes it back. Nothing is written when fn or validation fails.
func (s *Service) EditFile(ctx context.Context, path string, fn func(*storygraph.Graph) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g, err := readGraph(path)
	if err != nil {
		return err
	}
	if err := fn(g); err != nil {
		return err
	}
	if err := storygraph.Validate(g); err != nil {
		return err
	}
	data, err := encodeGraph(g)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	s.logger.Debug("story graph edited", "path", path, "stories", countStories(g))
	return nil
}

// LoadGraph reads a story graph file.
func (s *Service) LoadGraph(path string) (*storygraph.Graph, error) {
	return readGraph(path)
}

// LoadReport reads a merge report file.
func (s *Service) LoadReport(path string) (*merge.Report, error) {
	return readReport(path)
}
