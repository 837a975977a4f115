// Package sqlite implements the store.Archive interface in a local SQLite
// file, for single-user setups without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"

	"github.com/alfredjeanlab/storymap/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteArchive implements store.Archive backed by a SQLite file.
type SQLiteArchive struct {
	db *sql.DB
}

var _ store.Archive = (*SQLiteArchive)(nil)

// New opens (creating if needed) the SQLite database at path and brings its
// schema up to date.
func New(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	if err := store.Migrate(migrationsFS, "sqlite", driver); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteArchive{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteArchive) Close() error {
	return s.db.Close()
}

func (s *SQLiteArchive) SaveSnapshot(ctx context.Context, snap *store.Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	var layout any
	if len(snap.Layout) > 0 {
		layout = string(snap.Layout)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO storymap_snapshots (id, map, source, story_count, graph, layout, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Map, snap.Source, snap.StoryCount, string(snap.Graph), layout, snap.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (s *SQLiteArchive) LatestSnapshot(ctx context.Context, mapName string) (*store.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, map, source, story_count, graph, layout, created_at
		FROM storymap_snapshots WHERE map = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, mapName)

	var snap store.Snapshot
	var graph string
	var layout sql.NullString
	var created int64
	if err := row.Scan(&snap.ID, &snap.Map, &snap.Source, &snap.StoryCount, &graph, &layout, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot for %s: %w", mapName, store.ErrNotFound)
		}
		return nil, err
	}
	snap.Graph = json.RawMessage(graph)
	if layout.Valid {
		snap.Layout = json.RawMessage(layout.String)
	}
	snap.CreatedAt = time.Unix(0, created).UTC()
	return &snap, nil
}

func (s *SQLiteArchive) SaveReport(ctx context.Context, r *store.ReportRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO storymap_reports (
			id, map, extracted_file, original_file,
			exact_matches, fuzzy_matches, new_stories, removed_stories, large_deletions,
			report, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Map, r.ExtractedFile, r.OriginalFile,
		r.ExactMatches, r.FuzzyMatches, r.NewStories, r.RemovedStories, r.LargeDeletions,
		string(r.Report), r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteArchive) ListReports(ctx context.Context, mapName string, limit int) ([]*store.ReportRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite reads a negative LIMIT as unbounded.
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, map, extracted_file, original_file,
			exact_matches, fuzzy_matches, new_stories, removed_stories, large_deletions,
			report, created_at
		FROM storymap_reports WHERE map = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, mapName, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports for %s: %w", mapName, err)
	}
	defer rows.Close()

	var out []*store.ReportRecord
	for rows.Next() {
		var r store.ReportRecord
		var report string
		var created int64
		if err := rows.Scan(
			&r.ID, &r.Map, &r.ExtractedFile, &r.OriginalFile,
			&r.ExactMatches, &r.FuzzyMatches, &r.NewStories, &r.RemovedStories, &r.LargeDeletions,
			&report, &created,
		); err != nil {
			return nil, err
		}
		r.Report = json.RawMessage(report)
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, &r)
	}
	return out, rows.Err()
}
