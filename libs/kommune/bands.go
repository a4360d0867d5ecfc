package kommune

import (
	"errors"
	"fmt"
)

// Style is the Leaflet path style applied to one boundary polygon.
type Style struct {
	FillColor   string  `json:"fillColor" yaml:"fill_color"`
	FillOpacity float64 `json:"fillOpacity" yaml:"fill_opacity"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Color       string  `json:"color" yaml:"color"`
}

// BelowMinimumStyle is used for every count under the first edge, including
// kommuner that matched nothing.
var BelowMinimumStyle = Style{FillColor: "#eeeeee", FillOpacity: 0.4, Weight: 0.3, Color: "grey"}

const (
	bandFillOpacity = 0.8
	bandWeight      = 0.3
	bandBorderColor = "black"
)

// Scale is a threshold-ordered colour scale. Band i covers
// [Edges[i], Edges[i+1]) and is drawn with Colors[i]; the last band is open
// ended. Counts below Edges[0] fall in the implicit below-minimum band.
type Scale struct {
	Edges  []int    `yaml:"edges" json:"edges"`
	Colors []string `yaml:"colors" json:"colors"`
}

// Validate checks that edges strictly increase and that there is one colour
// per band.
func (s Scale) Validate() error {
	if len(s.Edges) < 2 {
		return errors.New("scale needs at least two edges")
	}
	if len(s.Colors) != len(s.Edges)-1 {
		return fmt.Errorf("scale has %d edges and %d colors, want %d colors", len(s.Edges), len(s.Colors), len(s.Edges)-1)
	}
	for i := 1; i < len(s.Edges); i++ {
		if s.Edges[i] <= s.Edges[i-1] {
			return fmt.Errorf("scale edges must strictly increase: %d after %d", s.Edges[i], s.Edges[i-1])
		}
	}
	for i, color := range s.Colors {
		if color == "" {
			return fmt.Errorf("scale color %d is empty", i)
		}
	}
	return nil
}

// Minimum returns the lower bound of the first band.
func (s Scale) Minimum() int {
	return s.Edges[0]
}

// BelowMinimum reports whether count falls in the implicit below-minimum band.
func (s Scale) BelowMinimum(count int) bool {
	return count < s.Edges[0]
}

// ColorFor returns the colour of the first band whose upper edge exceeds
// count, or the last colour when none does.
func (s Scale) ColorFor(count int) string {
	for i, threshold := range s.Edges[1:] {
		if count < threshold {
			return s.Colors[i]
		}
	}
	return s.Colors[len(s.Colors)-1]
}

// BandIndex returns the band count falls in, or -1 for the below-minimum band.
func (s Scale) BandIndex(count int) int {
	if s.BelowMinimum(count) {
		return -1
	}
	for i, threshold := range s.Edges[1:] {
		if count < threshold {
			return i
		}
	}
	return len(s.Colors) - 1
}

// StyleFor returns the polygon style for count.
func (s Scale) StyleFor(count int) Style {
	if s.BelowMinimum(count) {
		return BelowMinimumStyle
	}
	return Style{
		FillColor:   s.ColorFor(count),
		FillOpacity: bandFillOpacity,
		Weight:      bandWeight,
		Color:       bandBorderColor,
	}
}

// Labels returns one "lo–hi" label per band, hi being the next edge minus one.
func (s Scale) Labels() []string {
	labels := make([]string, 0, len(s.Colors))
	for i := 0; i+1 < len(s.Edges); i++ {
		labels = append(labels, fmt.Sprintf("%d–%d", s.Edges[i], s.Edges[i+1]-1))
	}
	return labels
}
