package kommune

import (
	"html"
	"strings"
)

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// CoordinateSource records how a marker position was resolved.
type CoordinateSource string

const (
	CoordinateExplicit CoordinateSource = "explicit"
	CoordinateKommune  CoordinateSource = "kommune"
	CoordinateDefault  CoordinateSource = "default"
)

// Category is the glyph and colour of a marker. Match is the substring of the
// program field that selects it; the default category has no Match.
type Category struct {
	Match    string `json:"match,omitempty" yaml:"match"`
	Glyph    string `json:"glyph" yaml:"glyph"`
	Color    string `json:"color" yaml:"color"`
	Label    string `json:"label" yaml:"label"`
	FontSize int    `json:"fontSize" yaml:"font_size"`
}

// LayerSpec describes one toggleable marker layer.
type LayerSpec struct {
	ID           string     `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	ClusterColor string     `json:"clusterColor" yaml:"cluster_color"`
	TypeLabel    string     `json:"typeLabel" yaml:"type_label"`
	Categories   []Category `json:"categories" yaml:"categories"`
	Default      Category   `json:"default" yaml:"default"`
}

// CategoryFor returns the first category whose Match occurs in program, or
// the layer default.
func (l LayerSpec) CategoryFor(program string) Category {
	for _, c := range l.Categories {
		if c.Match != "" && strings.Contains(program, c.Match) {
			return c
		}
	}
	return l.Default
}

// Legend returns the categories in display order, default last.
func (l LayerSpec) Legend() []Category {
	out := make([]Category, 0, len(l.Categories)+1)
	out = append(out, l.Categories...)
	if len(l.Categories) == 0 || l.Default.Label != "" {
		out = append(out, l.Default)
	}
	return out
}

// Detail is one "Label: value" popup line.
type Detail struct {
	Label string
	Value string
}

// School is one row of a school table, ready for marker placement.
type School struct {
	Name       string
	Kommune    string
	Program    string
	Coordinate *Coordinate
	Details    []Detail
}

// Marker is a placed, styled school marker.
type Marker struct {
	Name     string           `json:"name"`
	Kommune  string           `json:"kommune"`
	Position Coordinate       `json:"position"`
	Source   CoordinateSource `json:"source"`
	Category Category         `json:"category"`
	Popup    string           `json:"popup"`
}

// MarkerLayer is a clustered layer of markers.
type MarkerLayer struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ClusterColor string   `json:"clusterColor"`
	Markers      []Marker `json:"markers"`
}

// Locator resolves marker coordinates for schools without explicit ones.
type Locator struct {
	normalizer *Normalizer
	coords     map[string]Coordinate
	fallback   Coordinate
}

// NewLocator creates a Locator over a copy of coords, keyed by canonical
// kommune name.
func NewLocator(normalizer *Normalizer, coords map[string]Coordinate, fallback Coordinate) *Locator {
	table := make(map[string]Coordinate, len(coords))
	for k, v := range coords {
		table[k] = v
	}
	return &Locator{normalizer: normalizer, coords: table, fallback: fallback}
}

// Locate returns explicit when set, otherwise the coordinate of the
// normalized kommune, otherwise the fallback coordinate.
func (l *Locator) Locate(kommune string, explicit *Coordinate) (Coordinate, CoordinateSource) {
	if explicit != nil {
		return *explicit, CoordinateExplicit
	}
	if c, ok := l.coords[l.normalizer.Normalize(kommune)]; ok {
		return c, CoordinateKommune
	}
	return l.fallback, CoordinateDefault
}

// Sanitizer cleans free text before it is embedded in popup HTML.
// *bluemonday.Policy satisfies it.
type Sanitizer interface {
	Sanitize(s string) string
}

type escapeSanitizer struct{}

func (escapeSanitizer) Sanitize(s string) string { return html.EscapeString(s) }

// MarkerBuilder turns school rows into marker layers.
type MarkerBuilder struct {
	locator   *Locator
	sanitizer Sanitizer
}

// NewMarkerBuilder creates a MarkerBuilder. A nil sanitizer escapes HTML.
func NewMarkerBuilder(locator *Locator, sanitizer Sanitizer) *MarkerBuilder {
	if sanitizer == nil {
		sanitizer = escapeSanitizer{}
	}
	return &MarkerBuilder{locator: locator, sanitizer: sanitizer}
}

// Build places and styles every school of one layer.
func (b *MarkerBuilder) Build(spec LayerSpec, schools []School) MarkerLayer {
	layer := MarkerLayer{
		ID:           spec.ID,
		Name:         spec.Name,
		ClusterColor: spec.ClusterColor,
		Markers:      make([]Marker, 0, len(schools)),
	}
	for _, school := range schools {
		position, source := b.locator.Locate(school.Kommune, school.Coordinate)
		layer.Markers = append(layer.Markers, Marker{
			Name:     school.Name,
			Kommune:  school.Kommune,
			Position: position,
			Source:   source,
			Category: spec.CategoryFor(school.Program),
			Popup:    b.popup(school),
		})
	}
	return layer
}

func (b *MarkerBuilder) popup(school School) string {
	var sb strings.Builder
	sb.WriteString("<b>")
	sb.WriteString(b.sanitizer.Sanitize(school.Name))
	sb.WriteString("</b>")
	for _, d := range school.Details {
		sb.WriteString("<br>")
		sb.WriteString(b.sanitizer.Sanitize(d.Label))
		sb.WriteString(": ")
		sb.WriteString(b.sanitizer.Sanitize(d.Value))
	}
	return sb.String()
}
