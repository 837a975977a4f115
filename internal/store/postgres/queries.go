package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/storymap/internal/store"
)

// snapshotColumns is the column list used for SELECT statements on storymap_snapshots.
const snapshotColumns = `id, map, source, story_count, graph, layout, created_at`

// reportColumns is the column list used for SELECT statements on storymap_reports.
const reportColumns = `id, map, extracted_file, original_file,
	exact_matches, fuzzy_matches, new_stories, removed_stories, large_deletions,
	report, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func querySaveSnapshot(ctx context.Context, db executor, s *store.Snapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO storymap_snapshots (id, map, source, story_count, graph, layout, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID,
		s.Map,
		s.Source,
		s.StoryCount,
		jsonbBytes(s.Graph),
		jsonbBytes(s.Layout),
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", s.ID, err)
	}
	return nil
}

func queryLatestSnapshot(ctx context.Context, db executor, mapName string) (*store.Snapshot, error) {
	row := db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM storymap_snapshots
		WHERE map = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, mapName)
	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot for %s: %w", mapName, store.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func querySaveReport(ctx context.Context, db executor, r *store.ReportRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO storymap_reports (
			id, map, extracted_file, original_file,
			exact_matches, fuzzy_matches, new_stories, removed_stories, large_deletions,
			report, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID,
		r.Map,
		r.ExtractedFile,
		r.OriginalFile,
		r.ExactMatches,
		r.FuzzyMatches,
		r.NewStories,
		r.RemovedStories,
		r.LargeDeletions,
		jsonbBytes(r.Report),
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", r.ID, err)
	}
	return nil
}

func queryListReports(ctx context.Context, db executor, mapName string, limit int) ([]*store.ReportRecord, error) {
	q := `SELECT ` + reportColumns + ` FROM storymap_reports WHERE map = $1 ORDER BY created_at DESC, id DESC`
	args := []any{mapName}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports for %s: %w", mapName, err)
	}
	return scanReports(rows)
}
