package main

import (
	"errors"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"intlschools/libs/kommune"

	"github.com/gin-gonic/gin"
)

const pageTitle = "International Schools & Foreign Children in Denmark"

type dashboardPageData struct {
	Title     string
	Dashboard *Dashboard
	Error     *apiError
	Notes     template.HTML
}

// parseLayerToggles reads layer visibility from the query string. A missing
// parameter means visible, unless the form was submitted, in which case it
// means an unchecked box.
func parseLayerToggles(c *gin.Context, layers []kommune.LayerSpec) map[string]bool {
	submitted := c.Query("submitted") != ""
	toggles := make(map[string]bool, len(layers))
	for _, layer := range layers {
		raw, present := c.GetQuery(layer.ID)
		if !present {
			if submitted {
				toggles[layer.ID] = false
			}
			continue
		}
		toggles[layer.ID] = parseToggle(raw)
	}
	return toggles
}

func parseToggle(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "false", "off", "no":
		return false
	default:
		return true
	}
}

func (a *App) dashboardPageHandler(c *gin.Context) {
	dashboard, err := a.buildDashboard(c.Request.Context(), c.Query("view"), parseLayerToggles(c, a.catalog.Layers))
	if err != nil {
		a.renderErrorPage(c, err)
		return
	}
	a.renderDashboardTemplate(c, http.StatusOK, "templates/dashboard/index.tmpl", dashboardPageData{
		Title:     pageTitle,
		Dashboard: dashboard,
	})
}

func (a *App) notesPageHandler(c *gin.Context) {
	notes, err := a.templates.notesHTML()
	if err != nil {
		a.renderErrorPage(c, err)
		return
	}
	a.renderDashboardTemplate(c, http.StatusOK, "templates/dashboard/notes.tmpl", dashboardPageData{
		Title: "Data notes",
		Notes: notes,
	})
}

func (a *App) renderErrorPage(c *gin.Context, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = &apiError{Status: http.StatusInternalServerError, Code: "internal_error", Message: err.Error()}
	}
	a.log.Error("dashboard render failed", "code", apiErr.Code, "error", apiErr.Message)
	a.renderDashboardTemplate(c, apiErr.Status, "templates/dashboard/error.tmpl", dashboardPageData{
		Title: pageTitle,
		Error: apiErr,
	})
}

func (a *App) renderDashboardTemplate(c *gin.Context, status int, contentTemplatePath string, data any) {
	templates, err := a.templates.templatesForRender(contentTemplatePath)
	if err != nil {
		c.String(http.StatusInternalServerError, "dashboard template error: %v", err)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if executeErr := templates.ExecuteTemplate(c.Writer, "layout", data); executeErr != nil {
		a.log.Error("render dashboard template failed", "error", executeErr)
		if !c.Writer.Written() {
			c.String(http.StatusInternalServerError, "render failure")
		}
	}
}

func (a *App) viewsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"views":       a.catalog.Views,
		"defaultView": a.catalog.DefaultView().ID,
		"layers":      a.catalog.Layers,
	})
}

func (a *App) dashboardHandler(c *gin.Context) {
	dashboard, err := a.buildDashboard(c.Request.Context(), c.Query("view"), parseLayerToggles(c, a.catalog.Layers))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (a *App) municipalitiesHandler(c *gin.Context) {
	snap, err := a.snapshot(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}

	seen := make(map[string]struct{}, len(snap.Boundaries.Features))
	names := make([]string, 0, len(snap.Boundaries.Features))
	for _, feature := range snap.Boundaries.Features {
		raw, _ := feature.StringProperty(a.enricher.NameKey())
		name := a.normalizer.Normalize(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"municipalities": names})
}

func (a *App) joinDiagnosticsHandler(c *gin.Context) {
	render, err := a.loadViewRender(c.Request.Context(), c.Query("view"))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":   render.View.ID,
		"report": render.Enriched.Report(render.Lookup),
	})
}
