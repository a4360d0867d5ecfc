package kommune

import "encoding/json"

// FeatureCollection is a GeoJSON FeatureCollection of kommune boundaries.
// Geometry is kept as raw JSON; nothing in this package inspects it.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON feature.
type Feature struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id,omitempty"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// StringProperty returns the named property when it holds a string.
func (f Feature) StringProperty(key string) (string, bool) {
	value, ok := f.Properties[key]
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// WithProperty returns a shallow copy of f whose properties map is a fresh
// copy carrying key=value.
func (f Feature) WithProperty(key string, value any) Feature {
	props := make(map[string]any, len(f.Properties)+1)
	for k, v := range f.Properties {
		props[k] = v
	}
	props[key] = value
	f.Properties = props
	return f
}
