package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"
	"time"

	"intlschools/libs/datasets"
	"intlschools/libs/kommune"
)

func TestSnapshotCacheUsesTTL(t *testing.T) {
	cfg := testConfig()
	cfg.DataCacheTTL = time.Hour
	app := newTestApp(t, cfg)

	calls := 0
	app.loadSnapshot = func(ctx context.Context) (*dataSnapshot, error) {
		calls++
		return &dataSnapshot{LoadedAt: time.Now()}, nil
	}

	first, err := app.snapshot(context.Background())
	if err != nil {
		t.Fatalf("first snapshot failed: %v", err)
	}
	second, err := app.snapshot(context.Background())
	if err != nil {
		t.Fatalf("second snapshot failed: %v", err)
	}
	if first != second {
		t.Fatal("expected cached snapshot to be reused")
	}
	if calls != 1 {
		t.Fatalf("expected one load before ttl expiry, got %d", calls)
	}

	app.snapshotMu.Lock()
	app.snapshotExpires = time.Now().Add(-time.Second)
	app.snapshotMu.Unlock()

	if _, err := app.snapshot(context.Background()); err != nil {
		t.Fatalf("snapshot after ttl failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reload after ttl expiry, got %d loads", calls)
	}
}

func TestSnapshotCacheDisabledWithZeroTTL(t *testing.T) {
	app := newTestApp(t, testConfig())

	calls := 0
	app.loadSnapshot = func(ctx context.Context) (*dataSnapshot, error) {
		calls++
		return &dataSnapshot{}, nil
	}
	for i := 0; i < 3; i++ {
		if _, err := app.snapshot(context.Background()); err != nil {
			t.Fatalf("snapshot failed: %v", err)
		}
	}
	if calls != 3 {
		t.Fatalf("expected every call to load, got %d loads", calls)
	}
}

func TestSnapshotErrorsAreNotCached(t *testing.T) {
	cfg := testConfig()
	cfg.DataCacheTTL = time.Hour
	app := newTestApp(t, cfg)

	calls := 0
	app.loadSnapshot = func(ctx context.Context) (*dataSnapshot, error) {
		calls++
		if calls == 1 {
			return nil, &datasets.LoadError{Dataset: "children", Path: "children.csv", Err: fs.ErrNotExist}
		}
		return &dataSnapshot{}, nil
	}

	_, err := app.snapshot(context.Background())
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Code != "dataset_unavailable" || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected dataset_unavailable, got %v", err)
	}
	if _, err := app.snapshot(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
}

func TestReadSnapshotUsesCountRowsHook(t *testing.T) {
	app := newTestApp(t, testConfig())

	var requested []string
	app.loadCountRows = func(ctx context.Context, columns []string) ([]datasets.ChildrenRow, error) {
		requested = columns
		return []datasets.ChildrenRow{{Kommune: "Læsø", Counts: map[string]int{"School age": 310}}}, nil
	}

	snap, err := app.readSnapshot(context.Background())
	if err != nil {
		t.Fatalf("readSnapshot() error = %v", err)
	}
	if fmt.Sprint(requested) != "[School age High school age]" {
		t.Fatalf("unexpected count columns %v", requested)
	}
	if len(snap.Schools[layerGrundskoler]) != 2 || len(snap.Schools[layerGymnasier]) != 5 {
		t.Fatalf("unexpected school rows: %d / %d", len(snap.Schools[layerGrundskoler]), len(snap.Schools[layerGymnasier]))
	}

	render := app.renderView(snap, app.catalog.DefaultView())
	counts := render.Enriched.Counts()
	if counts["Læsø"] != 310 {
		t.Fatalf("expected Læsø to get 310, got %d", counts["Læsø"])
	}
	if counts["Ikast"] != 0 {
		t.Fatalf("expected Ikast to default to 0, got %d", counts["Ikast"])
	}
	if render.Enriched.Features[0].MatchedBy != kommune.MatchNone {
		t.Fatalf("expected København to be unmatched, got %s", render.Enriched.Features[0].MatchedBy)
	}
}
