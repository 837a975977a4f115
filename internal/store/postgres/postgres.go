// Package postgres implements the store.Archive interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/storymap/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresArchive keeps snapshots and reports in a shared PostgreSQL
// database, so a team sees one history per story map.
type PostgresArchive struct {
	db *sql.DB
}

var _ store.Archive = (*PostgresArchive)(nil)

// New connects to the archive database at databaseURL and brings its schema
// up to date.
func New(databaseURL string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "storymap_schema_migrations"})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	if err := store.Migrate(migrationsFS, "postgres", driver); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresArchive{db: db}, nil
}

// Close closes the underlying database connection.
func (s *PostgresArchive) Close() error {
	return s.db.Close()
}

func (s *PostgresArchive) SaveSnapshot(ctx context.Context, snap *store.Snapshot) error {
	return querySaveSnapshot(ctx, s.db, snap)
}

func (s *PostgresArchive) LatestSnapshot(ctx context.Context, mapName string) (*store.Snapshot, error) {
	return queryLatestSnapshot(ctx, s.db, mapName)
}

func (s *PostgresArchive) SaveReport(ctx context.Context, r *store.ReportRecord) error {
	return querySaveReport(ctx, s.db, r)
}

func (s *PostgresArchive) ListReports(ctx context.Context, mapName string, limit int) ([]*store.ReportRecord, error) {
	return queryListReports(ctx, s.db, mapName, limit)
}
