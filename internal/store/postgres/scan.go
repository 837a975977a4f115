package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/storymap/internal/store"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanSnapshot scans a single row into a store.Snapshot.
// The row must contain columns in the order defined by snapshotColumns.
func scanSnapshot(row scannable) (*store.Snapshot, error) {
	var s store.Snapshot
	var graph, layout []byte
	err := row.Scan(&s.ID, &s.Map, &s.Source, &s.StoryCount, &graph, &layout, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Graph = json.RawMessage(graph)
	if len(layout) > 0 {
		s.Layout = json.RawMessage(layout)
	}
	return &s, nil
}

// scanReport scans a single row into a store.ReportRecord.
// The row must contain columns in the order defined by reportColumns.
func scanReport(row scannable) (*store.ReportRecord, error) {
	var r store.ReportRecord
	var report []byte
	err := row.Scan(
		&r.ID,
		&r.Map,
		&r.ExtractedFile,
		&r.OriginalFile,
		&r.ExactMatches,
		&r.FuzzyMatches,
		&r.NewStories,
		&r.RemovedStories,
		&r.LargeDeletions,
		&report,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Report = json.RawMessage(report)
	return &r, nil
}

func scanReports(rows *sql.Rows) ([]*store.ReportRecord, error) {
	defer rows.Close()
	var out []*store.ReportRecord
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// jsonbBytes returns nil for empty JSON so nullable columns store NULL.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
