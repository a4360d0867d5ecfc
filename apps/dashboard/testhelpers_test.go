package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"intlschools/libs/datasets"
	"intlschools/libs/kommune"

	"github.com/gin-gonic/gin"
)

func testConfig() *Config {
	return &Config{
		Env:              "test",
		DataRoot:         "testdata",
		PublicBaseURL:    "https://dashboard.example.dk",
		BoundaryFile:     filepath.Join("testdata", "kommuner.geojson"),
		BoundaryNameKey:  "KOMNAVN",
		ChildrenFile:     filepath.Join("testdata", "children.csv"),
		ChildrenEncoding: datasets.CP1252,
		LayerFiles: map[string]string{
			layerGrundskoler: filepath.Join("testdata", "schools.csv"),
			layerGymnasier:   filepath.Join("testdata", "international_high_schools.csv"),
		},
		CountsSource: countsSourceCSV,
		MailerFromAddresses: map[string]string{
			"log": "noreply@intlschools.local",
		},
	}
}

func newTestApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	catalog, err := kommune.DefaultCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return newApp(cfg, catalog, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestServer(t *testing.T, cfg *Config) (*App, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := newTestApp(t, cfg)
	router := gin.New()
	if err := app.registerRoutes(router); err != nil {
		t.Fatalf("register routes: %v", err)
	}
	return app, router
}

func serve(router *gin.Engine, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
