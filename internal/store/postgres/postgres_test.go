package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/alfredjeanlab/storymap/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var snapshotRowColumns = []string{"id", "map", "source", "story_count", "graph", "layout", "created_at"}

var reportRowColumns = []string{
	"id", "map", "extracted_file", "original_file",
	"exact_matches", "fuzzy_matches", "new_stories", "removed_stories", "large_deletions",
	"report", "created_at",
}

func TestQuerySaveSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	snap := &store.Snapshot{
		ID: "ss-test1", Map: "shop", Source: "sync", StoryCount: 3,
		Graph: json.RawMessage(`{"epics":[]}`), CreatedAt: now,
	}
	mock.ExpectExec("INSERT INTO storymap_snapshots").
		WithArgs("ss-test1", "shop", "sync", 3, []byte(`{"epics":[]}`), []byte(nil), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := querySaveSnapshot(context.Background(), db, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuerySaveSnapshot_StampsTime(t *testing.T) {
	db, mock := newMockDB(t)
	snap := &store.Snapshot{ID: "ss-test2", Map: "shop", Source: "merge", Graph: json.RawMessage(`{}`)}
	mock.ExpectExec("INSERT INTO storymap_snapshots").
		WithArgs("ss-test2", "shop", "merge", 0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := querySaveSnapshot(context.Background(), db, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestQueryLatestSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(snapshotRowColumns).
		AddRow("ss-new", "shop", "sync", 2, []byte(`{"epics":[]}`), []byte(`{"Shop":{"x":20,"y":130}}`), now)
	mock.ExpectQuery("SELECT .+ FROM storymap_snapshots\\s+WHERE map = \\$1 ORDER BY created_at DESC").
		WithArgs("shop").WillReturnRows(rows)

	snap, err := queryLatestSnapshot(context.Background(), db, "shop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ID != "ss-new" || snap.StoryCount != 2 {
		t.Fatalf("got %+v", snap)
	}
	if string(snap.Layout) != `{"Shop":{"x":20,"y":130}}` {
		t.Errorf("layout = %s", snap.Layout)
	}
}

func TestQueryLatestSnapshot_NullLayout(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows(snapshotRowColumns).
		AddRow("ss-1", "shop", "render", 0, []byte(`{}`), nil, time.Now().UTC())
	mock.ExpectQuery("SELECT .+ FROM storymap_snapshots").WithArgs("shop").WillReturnRows(rows)

	snap, err := queryLatestSnapshot(context.Background(), db, "shop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Layout != nil {
		t.Errorf("layout = %s, want nil", snap.Layout)
	}
}

func TestQueryLatestSnapshot_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM storymap_snapshots").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := queryLatestSnapshot(context.Background(), db, "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestQuerySaveReport(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	r := &store.ReportRecord{
		ID: "mr-test1", Map: "shop", ExtractedFile: "shop-extracted.json", OriginalFile: "shop.json",
		ExactMatches: 5, FuzzyMatches: 1, NewStories: 2, RemovedStories: 1, LargeDeletions: 0,
		Report: json.RawMessage(`{"summary":{}}`), CreatedAt: now,
	}
	mock.ExpectExec("INSERT INTO storymap_reports").
		WithArgs("mr-test1", "shop", "shop-extracted.json", "shop.json", 5, 1, 2, 1, 0, []byte(`{"summary":{}}`), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := querySaveReport(context.Background(), db, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuerySaveReport_Error(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO storymap_reports").WillReturnError(errors.New("duplicate key"))

	err := querySaveReport(context.Background(), db, &store.ReportRecord{ID: "mr-dup", Report: json.RawMessage(`{}`)})
	if err == nil || err.Error() != "insert report mr-dup: duplicate key" {
		t.Fatalf("err = %v", err)
	}
}

func TestQueryListReports(t *testing.T) {
	for _, tc := range []struct {
		name  string
		limit int
		query string
		args  []driver.Value
	}{
		{"Unlimited", 0, "SELECT .+ FROM storymap_reports WHERE map = \\$1 ORDER BY created_at DESC, id DESC$", []driver.Value{"shop"}},
		{"Limited", 2, "SELECT .+ FROM storymap_reports WHERE map = \\$1 ORDER BY .+ LIMIT \\$2", []driver.Value{"shop", 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			now := time.Now().UTC()
			rows := sqlmock.NewRows(reportRowColumns).
				AddRow("mr-2", "shop", "b.json", "a.json", 1, 0, 0, 0, 0, []byte(`{}`), now).
				AddRow("mr-1", "shop", "b.json", "a.json", 0, 1, 1, 1, 1, []byte(`{}`), now.Add(-time.Hour))

			mock.ExpectQuery(tc.query).WithArgs(tc.args...).WillReturnRows(rows)

			got, err := queryListReports(context.Background(), db, "shop", tc.limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 2 || got[0].ID != "mr-2" || got[1].LargeDeletions != 1 {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestJSONBBytes(t *testing.T) {
	if jsonbBytes(nil) != nil {
		t.Error("nil raw message should store NULL")
	}
	if got := string(jsonbBytes(json.RawMessage(`{}`))); got != "{}" {
		t.Errorf("got %q", got)
	}
}
