package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreSaveAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runs := []Run{
		{SessionID: "s1", Origin: OriginSample, Source: "samples/sample-game.js", Outcome: OutcomeStarted},
		{SessionID: "s2", Origin: OriginURL, Source: "http://example.com/g.js", Outcome: OutcomeFailed, Detail: "HTTP 404 Not Found"},
		{SessionID: "s3", Origin: OriginLocal, Source: "game.js", Outcome: OutcomeStarted},
	}
	for _, r := range runs {
		if _, err := store.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun() failed: %v", err)
		}
	}

	got, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(got))
	}

	// Newest first
	if got[0].SessionID != "s3" || got[2].SessionID != "s1" {
		t.Errorf("Runs not newest-first: %+v", got)
	}
	if got[1].Detail != "HTTP 404 Not Found" {
		t.Errorf("Detail = %q", got[1].Detail)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func TestStoreRecentRunsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.SaveRun(ctx, Run{SessionID: "s", Origin: OriginSample, Source: "x", Outcome: OutcomeStarted})
	}

	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("Expected 3 runs with limit, got %d", len(runs))
	}
}

func TestStoreSessionRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.SaveRun(ctx, Run{SessionID: "a", Origin: OriginURL, Source: "u1", Outcome: OutcomeTimeout})
	store.SaveRun(ctx, Run{SessionID: "b", Origin: OriginURL, Source: "u2", Outcome: OutcomeStarted})
	store.SaveRun(ctx, Run{SessionID: "a", Origin: OriginURL, Source: "u3", Outcome: OutcomeStarted})

	runs, err := store.SessionRuns(ctx, "a")
	if err != nil {
		t.Fatalf("SessionRuns() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].Source != "u1" || runs[1].Source != "u3" {
		t.Errorf("Unexpected session runs: %+v", runs)
	}
}

func TestStoreStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.SaveRun(ctx, Run{SessionID: "1", Origin: OriginURL, Source: "u", Outcome: OutcomeStarted})
	store.SaveRun(ctx, Run{SessionID: "2", Origin: OriginURL, Source: "u", Outcome: OutcomeRejected})
	store.SaveRun(ctx, Run{SessionID: "3", Origin: OriginSample, Source: "s", Outcome: OutcomeStarted})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	url := stats[OriginURL]
	if url == nil || url.Runs != 2 || url.Started != 1 {
		t.Errorf("url stats = %+v", url)
	}
	if stats[OriginSample] == nil || stats[OriginSample].Runs != 1 {
		t.Errorf("sample stats = %+v", stats[OriginSample])
	}
	if _, ok := stats[OriginLocal]; ok {
		t.Error("Unexpected stats for unused origin")
	}
}

func TestStoreLastRunAndClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	last, err := store.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun() failed: %v", err)
	}
	if last != nil {
		t.Errorf("Expected no last run in empty store, got %+v", last)
	}

	store.SaveRun(ctx, Run{SessionID: "x", Origin: OriginLocal, Source: "a.js", Outcome: OutcomeStarted})
	store.SaveRun(ctx, Run{SessionID: "y", Origin: OriginLocal, Source: "b.js", Outcome: OutcomeStarted})

	last, err = store.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun() failed: %v", err)
	}
	if last == nil || last.Source != "b.js" {
		t.Errorf("LastRun = %+v, want b.js", last)
	}

	if err := store.ClearRuns(ctx); err != nil {
		t.Fatalf("ClearRuns() failed: %v", err)
	}
	runs, _ := store.RecentRuns(ctx, 10)
	if len(runs) != 0 {
		t.Errorf("Expected 0 runs after clear, got %d", len(runs))
	}
}

func TestStoreExpandHomePath(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	// Verify nested directories were created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}

	t.Setenv("HOME", tmpDir)
	home, err := Open("~/history/test.db")
	if err != nil {
		t.Fatalf("Open() with ~ path failed: %v", err)
	}
	defer home.Close()
	if _, err := os.Stat(filepath.Join(tmpDir, "history", "test.db")); err != nil {
		t.Errorf("~ path not expanded into HOME: %v", err)
	}
}
