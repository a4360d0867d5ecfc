package datasets

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"intlschools/libs/kommune"
)

// LoadBoundaries reads a GeoJSON FeatureCollection whose features carry the
// kommune name as a string property under nameKey.
func LoadBoundaries(path, nameKey string) (kommune.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return kommune.FeatureCollection{}, &LoadError{Dataset: "boundaries", Path: path, Err: err}
	}
	defer f.Close()

	fc, err := DecodeBoundaries(f, nameKey)
	if err != nil {
		return kommune.FeatureCollection{}, &LoadError{Dataset: "boundaries", Path: path, Err: err}
	}
	return fc, nil
}

// DecodeBoundaries decodes and checks a boundary FeatureCollection.
func DecodeBoundaries(r io.Reader, nameKey string) (kommune.FeatureCollection, error) {
	var fc kommune.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return kommune.FeatureCollection{}, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return kommune.FeatureCollection{}, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}
	for i, feature := range fc.Features {
		if _, ok := feature.StringProperty(nameKey); !ok {
			return kommune.FeatureCollection{}, fmt.Errorf("feature %d has no string property %q", i, nameKey)
		}
	}
	return fc, nil
}
