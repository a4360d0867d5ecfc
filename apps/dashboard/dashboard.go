package main

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"intlschools/libs/datasets"
	"intlschools/libs/kommune"

	"github.com/google/uuid"
)

const styleProperty = "style"

type LegendBand struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type LegendGroup struct {
	LayerID string             `json:"layerId"`
	Name    string             `json:"name"`
	Entries []kommune.Category `json:"entries"`
}

type Legend struct {
	Title       string        `json:"title"`
	Bands       []LegendBand  `json:"bands"`
	SchoolTypes []LegendGroup `json:"schoolTypes"`
}

type MunicipalityCount struct {
	Name      string              `json:"name"`
	Key       string              `json:"key"`
	Count     int                 `json:"count"`
	MatchedBy kommune.MatchSource `json:"matchedBy"`
	Band      int                 `json:"band"`
	Color     string              `json:"color"`
}

type LayerOption struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

// Dashboard is everything one page render needs. It is built per request and
// shares no mutable state with other requests.
type Dashboard struct {
	RenderID       string                    `json:"renderId"`
	GeneratedAt    time.Time                 `json:"generatedAt"`
	View           kommune.View              `json:"view"`
	Views          []kommune.View            `json:"views"`
	Map            kommune.MapSettings       `json:"map"`
	NameKey        string                    `json:"nameKey"`
	Boundaries     kommune.FeatureCollection `json:"boundaries"`
	LayerOptions   []LayerOption             `json:"layerOptions"`
	Layers         []kommune.MarkerLayer     `json:"layers"`
	Legend         Legend                    `json:"legend"`
	Municipalities []MunicipalityCount       `json:"municipalities"`
}

// viewRender is the join result of one view over one snapshot.
type viewRender struct {
	View     kommune.View
	Lookup   kommune.Lookup
	Enriched *kommune.EnrichedCollection
}

func (a *App) resolveView(viewID string) (kommune.View, error) {
	viewID = strings.TrimSpace(viewID)
	if viewID == "" {
		return a.catalog.DefaultView(), nil
	}
	view, ok := a.catalog.View(viewID)
	if !ok {
		return kommune.View{}, &apiError{Status: http.StatusBadRequest, Code: "invalid_view", Message: fmt.Sprintf("Unknown view %q", viewID)}
	}
	return view, nil
}

func (a *App) renderView(snap *dataSnapshot, view kommune.View) *viewRender {
	lookup, overwritten := kommune.BuildLookupReport(a.normalizer, datasets.CountRecords(snap.Children, view.CountColumn))
	for _, key := range overwritten {
		a.log.Warn("duplicate kommune rows, last value wins", "view", view.ID, "kommune", key)
	}
	return &viewRender{
		View:     view,
		Lookup:   lookup,
		Enriched: a.enricher.Enrich(snap.Boundaries, lookup, view.PropertyKey),
	}
}

func (a *App) loadViewRender(ctx context.Context, viewID string) (*viewRender, error) {
	view, err := a.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	snap, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return a.renderView(snap, view), nil
}

func (a *App) buildDashboard(ctx context.Context, viewID string, toggles map[string]bool) (*Dashboard, error) {
	view, err := a.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	snap, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	render := a.renderView(snap, view)
	scale := view.Scale

	features := make([]kommune.Feature, 0, len(render.Enriched.Features))
	for _, f := range render.Enriched.Features {
		features = append(features, f.Feature.WithProperty(styleProperty, scale.StyleFor(f.Count)))
	}

	dashboard := &Dashboard{
		RenderID:       uuid.NewString(),
		GeneratedAt:    time.Now().UTC(),
		View:           view,
		Views:          a.catalog.Views,
		Map:            a.catalog.Map,
		NameKey:        a.enricher.NameKey(),
		Boundaries:     kommune.FeatureCollection{Type: "FeatureCollection", Features: features},
		LayerOptions:   make([]LayerOption, 0, len(a.catalog.Layers)),
		Layers:         []kommune.MarkerLayer{},
		Legend:         buildLegend(view),
		Municipalities: municipalityCounts(render),
	}

	for _, spec := range a.catalog.Layers {
		visible := layerVisible(toggles, spec.ID)
		dashboard.LayerOptions = append(dashboard.LayerOptions, LayerOption{ID: spec.ID, Name: spec.Name, Visible: visible})
		if !visible {
			continue
		}
		dashboard.Layers = append(dashboard.Layers, a.markers.Build(spec, schoolsForLayer(spec, snap.Schools[spec.ID])))
		dashboard.Legend.SchoolTypes = append(dashboard.Legend.SchoolTypes, LegendGroup{
			LayerID: spec.ID,
			Name:    spec.Name,
			Entries: spec.Legend(),
		})
	}

	return dashboard, nil
}

func layerVisible(toggles map[string]bool, layerID string) bool {
	visible, ok := toggles[layerID]
	return !ok || visible
}

func buildLegend(view kommune.View) Legend {
	labels := view.Scale.Labels()
	bands := make([]LegendBand, 0, len(labels))
	for i, label := range labels {
		bands = append(bands, LegendBand{Label: label, Color: view.Scale.Colors[i]})
	}
	return Legend{
		Title:       fmt.Sprintf("Legend: %s (%d+ only)", view.LegendTitle, view.Scale.Minimum()),
		Bands:       bands,
		SchoolTypes: []LegendGroup{},
	}
}

// municipalityCounts lists every boundary feature sorted by name.
func municipalityCounts(render *viewRender) []MunicipalityCount {
	scale := render.View.Scale
	out := make([]MunicipalityCount, 0, len(render.Enriched.Features))
	for _, f := range render.Enriched.Features {
		color := kommune.BelowMinimumStyle.FillColor
		if !scale.BelowMinimum(f.Count) {
			color = scale.ColorFor(f.Count)
		}
		out = append(out, MunicipalityCount{
			Name:      f.Name,
			Key:       f.Key,
			Count:     f.Count,
			MatchedBy: f.MatchedBy,
			Band:      scale.BandIndex(f.Count),
			Color:     color,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// schoolsForLayer turns table rows into popup-ready schools. The popup type
// line combines the row's Type cell with the layer type label.
func schoolsForLayer(spec kommune.LayerSpec, rows []datasets.SchoolRow) []kommune.School {
	out := make([]kommune.School, 0, len(rows))
	for _, row := range rows {
		details := make([]kommune.Detail, 0, 4)
		if typeLabel := strings.TrimSpace(row.Type + " " + spec.TypeLabel); typeLabel != "" {
			details = append(details, kommune.Detail{Label: "Type", Value: typeLabel})
		}
		if row.Program != "" {
			details = append(details, kommune.Detail{Label: "Program", Value: row.Program})
		}
		if row.Language != "" {
			details = append(details, kommune.Detail{Label: "Language", Value: row.Language})
		}
		details = append(details, kommune.Detail{Label: "Kommune", Value: row.Kommune})

		out = append(out, kommune.School{
			Name:       row.Name,
			Kommune:    row.Kommune,
			Program:    row.Program,
			Coordinate: row.Coordinate,
			Details:    details,
		})
	}
	return out
}
