// Package store archives story map snapshots and merge reports.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Snapshot is one archived version of a story map.
type Snapshot struct {
	ID         string
	Map        string
	Source     string // operation that produced it: render, sync or merge
	StoryCount int
	Graph      json.RawMessage
	Layout     json.RawMessage // nil when no layout was written
	CreatedAt  time.Time
}

// ReportRecord is an archived merge report with its summary counts pulled
// out for listing.
type ReportRecord struct {
	ID             string
	Map            string
	ExtractedFile  string
	OriginalFile   string
	ExactMatches   int
	FuzzyMatches   int
	NewStories     int
	RemovedStories int
	LargeDeletions int
	Report         json.RawMessage
	CreatedAt      time.Time
}

// Archive defines the persistence interface for story map history.
type Archive interface {
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	// LatestSnapshot returns the newest snapshot of mapName, or ErrNotFound.
	LatestSnapshot(ctx context.Context, mapName string) (*Snapshot, error)

	SaveReport(ctx context.Context, r *ReportRecord) error
	// ListReports returns up to limit reports for mapName, newest first.
	// A limit of zero or less means no limit.
	ListReports(ctx context.Context, mapName string, limit int) ([]*ReportRecord, error)

	Close() error
}
