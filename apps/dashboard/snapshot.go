package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"intlschools/libs/datasets"
	"intlschools/libs/kommune"
)

// dataSnapshot is one consistent read of every input dataset. It is never
// modified after loading; render passes derive fresh values from it.
type dataSnapshot struct {
	Boundaries kommune.FeatureCollection
	Children   []datasets.ChildrenRow
	Schools    map[string][]datasets.SchoolRow
	LoadedAt   time.Time
}

func (a *App) snapshot(ctx context.Context) (*dataSnapshot, error) {
	now := time.Now()
	ttl := a.cfg.DataCacheTTL

	if ttl > 0 {
		a.snapshotMu.Lock()
		if a.snapshotCache != nil && now.Before(a.snapshotExpires) {
			cached := a.snapshotCache
			a.snapshotMu.Unlock()
			return cached, nil
		}
		a.snapshotMu.Unlock()
	}

	snap, err := a.loadSnapshot(ctx)
	if err != nil {
		return nil, datasetUnavailable(err)
	}

	if ttl > 0 {
		a.snapshotMu.Lock()
		a.snapshotCache = snap
		a.snapshotExpires = now.Add(ttl)
		a.snapshotMu.Unlock()
	}
	return snap, nil
}

func (a *App) readSnapshot(ctx context.Context) (*dataSnapshot, error) {
	boundaries, err := datasets.LoadBoundaries(a.cfg.BoundaryFile, a.cfg.BoundaryNameKey)
	if err != nil {
		return nil, err
	}

	children, err := a.loadCountRows(ctx, a.countColumns())
	if err != nil {
		return nil, err
	}

	schools := make(map[string][]datasets.SchoolRow, len(a.catalog.Layers))
	for _, layer := range a.catalog.Layers {
		path, ok := a.cfg.LayerFiles[layer.ID]
		if !ok {
			a.log.Warn("no school table configured for layer", "layer", layer.ID)
			continue
		}
		rows, err := datasets.LoadSchools(layer.ID, path)
		if err != nil {
			return nil, err
		}
		schools[layer.ID] = rows
	}

	a.log.Info("datasets loaded",
		"features", len(boundaries.Features),
		"count_rows", len(children),
		"layers", len(schools),
	)
	return &dataSnapshot{
		Boundaries: boundaries,
		Children:   children,
		Schools:    schools,
		LoadedAt:   time.Now(),
	}, nil
}

func (a *App) readCountRowsCSV(_ context.Context, columns []string) ([]datasets.ChildrenRow, error) {
	return datasets.LoadChildren(a.cfg.ChildrenFile, a.cfg.ChildrenEncoding, columns)
}

// countColumns returns the distinct count columns used by the catalog views.
func (a *App) countColumns() []string {
	seen := make(map[string]struct{}, len(a.catalog.Views))
	columns := make([]string, 0, len(a.catalog.Views))
	for _, view := range a.catalog.Views {
		if _, ok := seen[view.CountColumn]; ok {
			continue
		}
		seen[view.CountColumn] = struct{}{}
		columns = append(columns, view.CountColumn)
	}
	return columns
}

func datasetUnavailable(err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return err
	}
	var loadErr *datasets.LoadError
	if errors.As(err, &loadErr) {
		return &apiError{
			Status:  http.StatusInternalServerError,
			Code:    "dataset_unavailable",
			Message: fmt.Sprintf("Dataset %s could not be loaded: %v", loadErr.Dataset, loadErr.Err),
		}
	}
	return &apiError{Status: http.StatusInternalServerError, Code: "dataset_unavailable", Message: err.Error()}
}
