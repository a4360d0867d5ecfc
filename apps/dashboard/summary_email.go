package main

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"intlschools/libs/kommune"
	"intlschools/libs/mailer"
)

func buildSummaryEmail(to []string, render *viewRender, artifacts ExportArtifacts, dashboardURL string, generatedAt time.Time) mailer.Message {
	rows := municipalityCounts(render)
	total := 0
	aboveMinimum := 0
	var unmatched []string
	for _, row := range rows {
		total += row.Count
		if row.Band >= 0 {
			aboveMinimum++
		}
		if row.MatchedBy == kommune.MatchNone {
			unmatched = append(unmatched, row.Name)
		}
	}

	subject := fmt.Sprintf("Dashboard summary - %s", render.View.Label)

	unmatchedText := "none"
	if len(unmatched) > 0 {
		unmatchedText = strings.Join(unmatched, ", ")
	}

	htmlBody := fmt.Sprintf(`
		<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; line-height: 1.6; color: #333;">
			<h2>%s</h2>
			<p><strong>%d</strong> municipalities, <strong>%d</strong> at or above %d, <strong>%d</strong> children in total.</p>
			<p>Municipalities without a count row: %s</p>
			<p style="margin: 30px 0;">
				<a href="%s" style="background-color: #1976d2; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold; display: inline-block;">
					Open dashboard
				</a>
			</p>
			<p style="font-size: 12px; color: #999;">Generated %s. The PDF summary is attached.</p>
		</div>
	`, html.EscapeString(render.View.Label), len(rows), aboveMinimum, render.View.Scale.Minimum(), total,
		html.EscapeString(unmatchedText), html.EscapeString(dashboardURL), generatedAt.UTC().Format(time.RFC3339))

	text := fmt.Sprintf(
		"%s\n\n%d municipalities, %d at or above %d, %d children in total.\nMunicipalities without a count row: %s\n\nDashboard: %s\n",
		render.View.Label, len(rows), aboveMinimum, render.View.Scale.Minimum(), total, unmatchedText, dashboardURL,
	)

	return mailer.Message{
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
		Text:    text,
		Attachments: []mailer.Attachment{{
			Filename:    exportFileName(render.View.ID, generatedAt, "pdf"),
			ContentType: "application/pdf",
			Content:     artifacts.PDF,
		}},
	}
}

func buildPublicURL(baseURL, path string) string {
	if strings.HasPrefix(path, "/") {
		return strings.TrimRight(baseURL, "/") + path
	}
	return strings.TrimRight(baseURL, "/") + "/" + path
}

func (a *App) sendSummaryEmail(ctx context.Context, viewID string) error {
	if len(a.cfg.SummaryEmailTo) == 0 {
		return fmt.Errorf("SUMMARY_EMAIL_TO must be configured to send a summary")
	}

	render, err := a.loadViewRender(ctx, viewID)
	if err != nil {
		return err
	}
	generatedAt := time.Now()
	artifacts, err := buildExportArtifacts(render, generatedAt)
	if err != nil {
		return fmt.Errorf("failed to build summary artifacts: %w", err)
	}

	dashboardURL := buildPublicURL(a.cfg.PublicBaseURL, "/?view="+render.View.ID)
	msg := buildSummaryEmail(a.cfg.SummaryEmailTo, render, artifacts, dashboardURL, generatedAt)

	result, err := a.mailer.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send summary email: %w", err)
	}
	a.log.Info("sent summary email",
		"view", render.View.ID,
		"recipients", len(a.cfg.SummaryEmailTo),
		"provider", a.mailer.ProviderName(),
		"message_id", result.ProviderMessageID,
	)
	return nil
}
