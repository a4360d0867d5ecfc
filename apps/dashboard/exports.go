package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"intlschools/libs/kommune"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
)

const pdfTopMunicipalities = 10

type ExportArtifacts struct {
	CSV     string
	GeoJSON string
	PDF     []byte
}

type exportFormat struct {
	ContentType string
	Extension   string
}

var exportFormats = map[string]exportFormat{
	"csv":     {ContentType: "text/csv; charset=utf-8", Extension: "csv"},
	"geojson": {ContentType: "application/geo+json", Extension: "geojson"},
	"pdf":     {ContentType: "application/pdf", Extension: "pdf"},
}

func buildExportArtifacts(render *viewRender, generatedAt time.Time) (ExportArtifacts, error) {
	rows := municipalityCounts(render)

	csvData, err := buildCSV(rows, render.View.Scale)
	if err != nil {
		return ExportArtifacts{}, err
	}
	geoJSON, err := buildGeoJSON(render.Enriched)
	if err != nil {
		return ExportArtifacts{}, err
	}
	pdfData, err := buildPDF(rows, render.View, generatedAt)
	if err != nil {
		return ExportArtifacts{}, err
	}
	return ExportArtifacts{CSV: csvData, GeoJSON: geoJSON, PDF: pdfData}, nil
}

func bandLabel(scale kommune.Scale, count int) string {
	idx := scale.BandIndex(count)
	if idx < 0 {
		return fmt.Sprintf("below %d", scale.Minimum())
	}
	return scale.Labels()[idx]
}

func buildCSV(rows []MunicipalityCount, scale kommune.Scale) (string, error) {
	buffer := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buffer)
	headers := []string{"kommune", "canonical", "count", "matched_by", "band"}
	if err := writer.Write(headers); err != nil {
		return "", err
	}
	for _, row := range rows {
		record := []string{
			row.Name,
			row.Key,
			strconv.Itoa(row.Count),
			string(row.MatchedBy),
			bandLabel(scale, row.Count),
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

func buildGeoJSON(enriched *kommune.EnrichedCollection) (string, error) {
	encoded, err := json.MarshalIndent(enriched.FeatureCollection(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func buildPDF(rows []MunicipalityCount, view kommune.View, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 16)
	pdf.Cell(0, 10, tr(view.Label))

	pdf.Ln(12)

	total := 0
	matched := 0
	bandCounts := make([]int, len(view.Scale.Colors))
	below := 0
	for _, row := range rows {
		total += row.Count
		if row.MatchedBy != kommune.MatchNone {
			matched++
		}
		if row.Band < 0 {
			below++
			continue
		}
		bandCounts[row.Band]++
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", generatedAt.UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Municipalities: %d (%d matched)", len(rows), matched))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total children: %d", total))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Band distribution (%s)", view.LegendTitle)))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("- below %d: %d", view.Scale.Minimum(), below))
	pdf.Ln(6)
	for i, label := range view.Scale.Labels() {
		pdf.Cell(0, 6, tr(fmt.Sprintf("- %s: %d", label, bandCounts[i])))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Top municipalities")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	ranked := append([]MunicipalityCount{}, rows...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	limit := len(ranked)
	if limit > pdfTopMunicipalities {
		limit = pdfTopMunicipalities
	}
	for i := 0; i < limit; i++ {
		pdf.Cell(0, 6, tr(fmt.Sprintf("%d. %s: %d", i+1, ranked[i].Name, ranked[i].Count)))
		pdf.Ln(6)
	}

	buffer := bytes.NewBuffer(nil)
	if err := pdf.Output(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func exportFileName(viewID string, generatedAt time.Time, ext string) string {
	return fmt.Sprintf("%s-%s.%s", viewID, generatedAt.UTC().Format("2006-01-02"), ext)
}

func (a *App) exportDownloadHandler(c *gin.Context) {
	formatName := strings.ToLower(strings.TrimSpace(c.Param("format")))
	format, ok := exportFormats[formatName]
	if !ok {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_format", Message: "Format must be csv, geojson or pdf"})
		return
	}

	render, err := a.loadViewRender(c.Request.Context(), c.Query("view"))
	if err != nil {
		writeAPIError(c, err)
		return
	}

	generatedAt := time.Now()
	var body []byte
	switch formatName {
	case "csv":
		data, buildErr := buildCSV(municipalityCounts(render), render.View.Scale)
		body, err = []byte(data), buildErr
	case "geojson":
		data, buildErr := buildGeoJSON(render.Enriched)
		body, err = []byte(data), buildErr
	case "pdf":
		body, err = buildPDF(municipalityCounts(render), render.View, generatedAt)
	}
	if err != nil {
		writeAPIError(c, err)
		return
	}

	c.Header("Content-Type", format.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportFileName(render.View.ID, generatedAt, format.Extension)))
	_, _ = c.Writer.Write(body)
}

// writeExportFiles writes every export format for one view into dir and
// returns the written paths.
func (a *App) writeExportFiles(ctx context.Context, viewID, dir string) ([]string, error) {
	render, err := a.loadViewRender(ctx, viewID)
	if err != nil {
		return nil, err
	}
	generatedAt := time.Now()
	artifacts, err := buildExportArtifacts(render, generatedAt)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	files := []struct {
		ext  string
		data []byte
	}{
		{"csv", []byte(artifacts.CSV)},
		{"geojson", []byte(artifacts.GeoJSON)},
		{"pdf", artifacts.PDF},
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, exportFileName(render.View.ID, generatedAt, f.ext))
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return written, fmt.Errorf("write %s export: %w", f.ext, err)
		}
		written = append(written, path)
	}
	return written, nil
}
