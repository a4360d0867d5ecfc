package kommune

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// View binds a count column, the feature property it is stored under and the
// colour scale used to draw it. Switching views swaps all three together.
type View struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	CountColumn string `yaml:"count_column" json:"countColumn"`
	PropertyKey string `yaml:"property_key" json:"propertyKey"`
	LegendTitle string `yaml:"legend_title" json:"legendTitle"`
	Scale       Scale  `yaml:"scale" json:"scale"`
}

// MapSettings holds the initial map viewport and tile source.
type MapSettings struct {
	Center      Coordinate `yaml:"center" json:"center"`
	Zoom        int        `yaml:"zoom" json:"zoom"`
	Tiles       string     `yaml:"tiles" json:"tiles"`
	Attribution string     `yaml:"attribution" json:"attribution"`
}

// Catalog groups every static table the dashboard depends on.
type Catalog struct {
	Variants          map[string]string     `yaml:"variants"`
	Coordinates       map[string]Coordinate `yaml:"coordinates"`
	DefaultCoordinate Coordinate            `yaml:"default_coordinate"`
	Map               MapSettings           `yaml:"map"`
	Layers            []LayerSpec           `yaml:"layers"`
	Views             []View                `yaml:"views"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks views and layers.
func (c *Catalog) Validate() error {
	if len(c.Views) == 0 {
		return errors.New("catalog: no views defined")
	}
	seen := make(map[string]struct{}, len(c.Views))
	for _, v := range c.Views {
		if v.ID == "" {
			return errors.New("catalog: view without id")
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("catalog: duplicate view %q", v.ID)
		}
		seen[v.ID] = struct{}{}
		if v.CountColumn == "" || v.PropertyKey == "" {
			return fmt.Errorf("catalog: view %q needs count_column and property_key", v.ID)
		}
		if err := v.Scale.Validate(); err != nil {
			return fmt.Errorf("catalog: view %q: %w", v.ID, err)
		}
	}
	layers := make(map[string]struct{}, len(c.Layers))
	for _, l := range c.Layers {
		if l.ID == "" {
			return errors.New("catalog: layer without id")
		}
		if _, dup := layers[l.ID]; dup {
			return fmt.Errorf("catalog: duplicate layer %q", l.ID)
		}
		layers[l.ID] = struct{}{}
		if l.Default.Glyph == "" {
			return fmt.Errorf("catalog: layer %q has no default category", l.ID)
		}
	}
	return nil
}

// View returns the view with the given id.
func (c *Catalog) View(id string) (View, bool) {
	for _, v := range c.Views {
		if v.ID == id {
			return v, true
		}
	}
	return View{}, false
}

// DefaultView returns the first view.
func (c *Catalog) DefaultView() View {
	return c.Views[0]
}

// Layer returns the layer with the given id.
func (c *Catalog) Layer(id string) (LayerSpec, bool) {
	for _, l := range c.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return LayerSpec{}, false
}

// Normalizer builds a Normalizer over the catalog variant table.
func (c *Catalog) Normalizer() *Normalizer {
	return NewNormalizer(c.Variants)
}

// Locator builds a Locator over the catalog coordinate table.
func (c *Catalog) Locator(n *Normalizer) *Locator {
	return NewLocator(n, c.Coordinates, c.DefaultCoordinate)
}
