package pipeline

import (
	"bytes"
	"context"

	"github.com/alfredjeanlab/storymap/internal/events"
	"github.com/alfredjeanlab/storymap/internal/merge"
	"github.com/alfredjeanlab/storymap/internal/publish"
	"github.com/alfredjeanlab/storymap/internal/store"
)

func (s *Service) emit(ctx context.Context, topic string, event any) {
	if err := s.events.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("event publish failed", "topic", topic, "err", err)
	}
}

// reported fans a freshly written merge report out to events and the archive.
func (s *Service) reported(ctx context.Context, mapName, path string, r *merge.Report, data []byte) {
	s.logger.Info("merge report written",
		"path", path,
		"report", r.ID,
		"exact", r.Summary.ExactMatches,
		"fuzzy", r.Summary.FuzzyMatches,
		"new", r.Summary.NewStories,
		"removed", r.Summary.RemovedStories)
	s.emit(ctx, events.TopicMergeReported, events.MergeReported{
		Map:      mapName,
		ReportID: r.ID,
		Path:     path,
		Summary:  r.Summary,
	})
	if !r.LargeDeletions.Empty() {
		s.logger.Warn("large deletions detected", "report", r.ID, "count", r.LargeDeletions.Count())
		s.emit(ctx, events.TopicDeletionsFlagged, events.DeletionsFlagged{
			Map:       mapName,
			ReportID:  r.ID,
			Deletions: r.LargeDeletions,
		})
	}

	if s.archive == nil {
		return
	}
	rec := &store.ReportRecord{
		ID:             r.ID,
		Map:            mapName,
		ExtractedFile:  r.ExtractedFile,
		OriginalFile:   r.OriginalFile,
		ExactMatches:   r.Summary.ExactMatches,
		FuzzyMatches:   r.Summary.FuzzyMatches,
		NewStories:     r.Summary.NewStories,
		RemovedStories: r.Summary.RemovedStories,
		LargeDeletions: r.LargeDeletions.Count(),
		Report:         bytes.TrimSpace(data),
		CreatedAt:      r.Timestamp,
	}
	if err := s.archive.SaveReport(ctx, rec); err != nil {
		s.logger.Warn("archive report failed", "report", r.ID, "err", err)
	}
}

func (s *Service) saveSnapshot(ctx context.Context, mapName, source string, graph, layout []byte, stories int) {
	if s.archive == nil {
		return
	}
	id, err := s.newSnapshotID()
	if err != nil {
		s.logger.Warn("archive snapshot failed", "map", mapName, "err", err)
		return
	}
	snap := &store.Snapshot{
		ID:         id,
		Map:        mapName,
		Source:     source,
		StoryCount: stories,
		Graph:      bytes.TrimSpace(graph),
	}
	if len(layout) > 0 {
		snap.Layout = bytes.TrimSpace(layout)
	}
	if err := s.archive.SaveSnapshot(ctx, snap); err != nil {
		s.logger.Warn("archive snapshot failed", "map", mapName, "snapshot", id, "err", err)
		return
	}
	s.logger.Debug("snapshot archived", "map", mapName, "snapshot", id, "source", source)
}

func artifact(name string, data []byte) publish.Artifact {
	return publish.Artifact{Name: name, Data: data}
}

// publish sends the non-empty artifacts plus a JSONL bundle of b.
func (s *Service) publish(ctx context.Context, mapName string, b publish.Bundle, artifacts ...publish.Artifact) {
	if !s.publisher.Enabled() {
		s.logger.Warn("publish requested but no destination is configured", "map", mapName)
		return
	}
	var out []publish.Artifact
	for _, a := range artifacts {
		if len(a.Data) > 0 {
			out = append(out, a)
		}
	}
	var buf bytes.Buffer
	if err := publish.ExportBundle(&buf, b); err != nil {
		s.logger.Warn("export bundle failed", "map", mapName, "err", err)
	} else {
		out = append(out, artifact(publish.BundleName, buf.Bytes()))
	}
	if err := s.publisher.Publish(ctx, mapName, out...); err != nil {
		s.logger.Warn("publish incomplete", "map", mapName, "err", err)
	}
}
