package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"intlschools/libs/kommune"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDashboard(t *testing.T, body []byte) Dashboard {
	t.Helper()
	var dashboard Dashboard
	require.NoError(t, json.Unmarshal(body, &dashboard))
	return dashboard
}

func municipalityByName(t *testing.T, d Dashboard, name string) MunicipalityCount {
	t.Helper()
	for _, m := range d.Municipalities {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("municipality %q not in dashboard", name)
	return MunicipalityCount{}
}

func TestDashboardSchoolAgeView(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/api/v1/dashboard?view=school-age")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decodeDashboard(t, rec.Body.Bytes())

	assert.Equal(t, "school-age", d.View.ID)
	assert.NotEmpty(t, d.RenderID)
	assert.Equal(t, "Legend: Foreign Children (School Age) (300+ only)", d.Legend.Title)
	require.Len(t, d.Legend.Bands, 5)
	assert.Equal(t, LegendBand{Label: "300–999", Color: "#ffffcc"}, d.Legend.Bands[0])
	assert.Equal(t, LegendBand{Label: "5500–7599", Color: "#680085"}, d.Legend.Bands[4])

	require.Len(t, d.Municipalities, 5)
	copenhagen := municipalityByName(t, d, "København")
	assert.Equal(t, 7000, copenhagen.Count, "later Copenhagen row must win")

	ikast := municipalityByName(t, d, "Ikast-Brande")
	assert.Equal(t, "Ikast", ikast.Key)
	assert.Equal(t, 1200, ikast.Count)
	assert.Equal(t, "#FFEA00", ikast.Color)

	taarnby := municipalityByName(t, d, "Tårnby")
	assert.Equal(t, 250, taarnby.Count)
	assert.Equal(t, kommune.MatchTransliterated, taarnby.MatchedBy)
	assert.Equal(t, -1, taarnby.Band)
	assert.Equal(t, "#eeeeee", taarnby.Color)

	laesoe := municipalityByName(t, d, "Læsø")
	assert.Equal(t, 0, laesoe.Count)
	assert.Equal(t, kommune.MatchNone, laesoe.MatchedBy)

	require.Len(t, d.Boundaries.Features, 5)
	for _, f := range d.Boundaries.Features {
		_, ok := f.Properties["ForeignChildrenCount"]
		assert.True(t, ok, "feature %v lacks count", f.Properties["KOMNAVN"])
		_, stale := f.Properties["InternationalStudentsCount"]
		assert.False(t, stale)
		assert.NotNil(t, f.Properties[styleProperty])
	}
}

func TestDashboardHighSchoolViewUsesItsOwnScale(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/api/v1/dashboard?view=high-school-age")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decodeDashboard(t, rec.Body.Bytes())

	assert.Equal(t, "InternationalStudentsCount", d.View.PropertyKey)
	assert.Equal(t, 1600, municipalityByName(t, d, "København").Count)
	ikast := municipalityByName(t, d, "Ikast-Brande")
	assert.Equal(t, 350, ikast.Count)
	assert.Equal(t, "#e0f2fe", ikast.Color)

	for _, f := range d.Boundaries.Features {
		_, stale := f.Properties["ForeignChildrenCount"]
		assert.False(t, stale)
	}
}

func TestDashboardDefaultsToFirstView(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/api/v1/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "school-age", decodeDashboard(t, rec.Body.Bytes()).View.ID)
}

func TestDashboardLayerToggles(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	cases := []struct {
		name   string
		query  string
		layers []string
	}{
		{"all visible by default", "", []string{"grundskoler", "gymnasier"}},
		{"explicit off", "gymnasier=0", []string{"grundskoler"}},
		{"submitted form without box", "submitted=1&grundskoler=1", []string{"grundskoler"}},
		{"submitted form with nothing", "submitted=1", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, "/api/v1/dashboard?"+tc.query)
			require.Equal(t, http.StatusOK, rec.Code)
			d := decodeDashboard(t, rec.Body.Bytes())

			var got []string
			for _, layer := range d.Layers {
				got = append(got, layer.ID)
			}
			assert.Equal(t, tc.layers, got)
			assert.Len(t, d.Legend.SchoolTypes, len(tc.layers))
		})
	}
}

func TestDashboardMarkers(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/api/v1/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	d := decodeDashboard(t, rec.Body.Bytes())
	require.Len(t, d.Layers, 2)

	grund := d.Layers[0]
	assert.Equal(t, "#4CAF50", grund.ClusterColor)
	require.Len(t, grund.Markers, 2)
	assert.Equal(t, kommune.CoordinateExplicit, grund.Markers[0].Source)
	assert.Equal(t, "<b>Copenhagen International School</b><br>Type: Grundskole<br>Kommune: København", grund.Markers[0].Popup)
	assert.NotContains(t, grund.Markers[1].Popup, "<script>")

	gym := d.Layers[1]
	require.Len(t, gym.Markers, 5)
	glyphs := make([]string, 0, len(gym.Markers))
	for _, m := range gym.Markers {
		glyphs = append(glyphs, m.Category.Glyph)
	}
	assert.Equal(t, []string{"IB", "F", "D", "E", "H"}, glyphs)
	assert.Equal(t, kommune.Coordinate{Lat: 55.7308, Lng: 12.5493}, gym.Markers[0].Position)
	assert.Equal(t, kommune.CoordinateDefault, gym.Markers[4].Source)
	assert.Equal(t, kommune.Coordinate{Lat: 55.6761, Lng: 12.5683}, gym.Markers[4].Position)
	assert.Contains(t, gym.Markers[0].Popup, "Type: Private Gymnasium<br>Program: IB<br>Language: English")
}

func TestDashboardUnknownViewReturnsBadRequest(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/api/v1/dashboard?view=adults")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_view") {
		t.Fatalf("expected invalid_view error, got %s", rec.Body.String())
	}
}

func TestDashboardMissingDatasetReturnsServerError(t *testing.T) {
	cfg := testConfig()
	cfg.ChildrenFile = "testdata/missing.csv"
	_, router := newTestServer(t, cfg)

	rec := serve(router, "/api/v1/dashboard")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dataset_unavailable") {
		t.Fatalf("expected dataset_unavailable error, got %s", rec.Body.String())
	}
}

func TestDashboardPageRenders(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/?view=high-school-age")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Legend: Foreign Children (High School Age) (300+ only)")
	assert.Contains(t, body, `<option value="high-school-age" selected>`)
	assert.Contains(t, body, "window.dashboardData = {")
	assert.Contains(t, body, "School Types")
	assert.Contains(t, body, "French Baccalaureate (DFB)")
	assert.NotContains(t, body, "<script>alert(1)</script>")
}

func TestDashboardPageHidesLegendForHiddenLayers(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/?submitted=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "School Types")
}

func TestDashboardPageRendersErrorPage(t *testing.T) {
	cfg := testConfig()
	cfg.BoundaryFile = "testdata/missing.geojson"
	_, router := newTestServer(t, cfg)

	rec := serve(router, "/")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "dataset_unavailable")
	assert.NotContains(t, rec.Body.String(), "window.dashboardData")
}

func TestNotesPageRendersMarkdown(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/notes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Data notes</h1>")
	assert.Contains(t, rec.Body.String(), "<table>")
}

func TestViewsHandler(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/api/v1/views")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Views       []kommune.View `json:"views"`
		DefaultView string         `json:"defaultView"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "school-age", payload.DefaultView)
	require.Len(t, payload.Views, 2)
	assert.Equal(t, []int{300, 500, 800, 1200, 1500, 1817}, payload.Views[1].Scale.Edges)
}

func TestMunicipalitiesHandler(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/api/v1/municipalities")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Municipalities []string `json:"municipalities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, []string{"Aarhus", "Ikast", "København", "Læsø", "Tårnby"}, payload.Municipalities)
}

func TestJoinDiagnosticsHandler(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/api/v1/diagnostics/join?view=school-age")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		View   string             `json:"view"`
		Report kommune.JoinReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "school-age", payload.View)
	assert.Equal(t, 4, payload.Report.Matched)
	assert.Equal(t, []string{"Læsø"}, payload.Report.Unmatched)
	assert.Equal(t, []string{"Atlantis"}, payload.Report.Orphans)
}

func TestHealthzAndStatic(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	rec := serve(router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(router, "/static/map.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "markerClusterGroup")
}

func TestParseToggle(t *testing.T) {
	for _, raw := range []string{"0", "false", "OFF", " no "} {
		if parseToggle(raw) {
			t.Errorf("parseToggle(%q) = true, want false", raw)
		}
	}
	for _, raw := range []string{"1", "true", "on", ""} {
		if !parseToggle(raw) {
			t.Errorf("parseToggle(%q) = false, want true", raw)
		}
	}
}
