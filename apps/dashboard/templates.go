package main

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/dashboard/*.tmpl dashboard_static/* notes.md
var dashboardAssetsFS embed.FS

type dashboardTemplateRenderer struct {
	env      string
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

func newDashboardTemplateRenderer(env string) *dashboardTemplateRenderer {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return &dashboardTemplateRenderer{
		env:      env,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   policy,
	}
}

func (r *dashboardTemplateRenderer) sourceFS() fs.FS {
	if r.env == "development" {
		return os.DirFS(".")
	}
	return dashboardAssetsFS
}

func (r *dashboardTemplateRenderer) templatesForRender(contentTemplatePath string) (*template.Template, error) {
	templates, err := template.New("layout.tmpl").Funcs(template.FuncMap{
		"json": toJSON,
	}).ParseFS(r.sourceFS(), "templates/dashboard/layout.tmpl", contentTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("parse dashboard templates: %w", err)
	}
	return templates, nil
}

// notesHTML renders the data-source notes. The markdown is sanitized after
// conversion so that edits to notes.md cannot inject script.
func (r *dashboardTemplateRenderer) notesHTML() (template.HTML, error) {
	source, err := fs.ReadFile(r.sourceFS(), "notes.md")
	if err != nil {
		return "", fmt.Errorf("read notes: %w", err)
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert(source, &buf); err != nil {
		return "", fmt.Errorf("render notes: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// toJSON embeds a value into a script block. encoding/json escapes <, > and &
// so the result cannot close the surrounding tag.
func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

func dashboardStaticFileSystem(env string) (http.FileSystem, error) {
	if env == "development" {
		return http.Dir("dashboard_static"), nil
	}

	sub, err := fs.Sub(dashboardAssetsFS, "dashboard_static")
	if err != nil {
		return nil, fmt.Errorf("dashboard static fs: %w", err)
	}
	return http.FS(sub), nil
}
