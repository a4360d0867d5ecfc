package kommune

import "sort"

// MatchSource records which lookup attempt produced a feature's count.
type MatchSource string

const (
	MatchNormalized     MatchSource = "normalized"
	MatchRaw            MatchSource = "raw"
	MatchTransliterated MatchSource = "transliterated"
	MatchFirstToken     MatchSource = "first-token"
	MatchNone           MatchSource = "none"
)

// EnrichedFeature is one boundary feature together with the count resolved
// for the active view.
type EnrichedFeature struct {
	Name      string
	Key       string
	LookupKey string
	Count     int
	MatchedBy MatchSource
	Feature   Feature
}

// EnrichedCollection is the result of one enrichment pass. It never shares
// property maps with the source collection.
type EnrichedCollection struct {
	PropertyKey string
	Features    []EnrichedFeature
}

// FeatureCollection returns the enriched features as GeoJSON.
func (c *EnrichedCollection) FeatureCollection() FeatureCollection {
	features := make([]Feature, 0, len(c.Features))
	for _, f := range c.Features {
		features = append(features, f.Feature)
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}

// Counts returns canonical key → count for every enriched feature.
func (c *EnrichedCollection) Counts() map[string]int {
	out := make(map[string]int, len(c.Features))
	for _, f := range c.Features {
		out[f.Key] = f.Count
	}
	return out
}

// Enricher attaches looked-up counts to boundary features.
type Enricher struct {
	normalizer *Normalizer
	nameKey    string
}

// NewEnricher creates an Enricher reading the kommune name from nameKey.
func NewEnricher(normalizer *Normalizer, nameKey string) *Enricher {
	return &Enricher{normalizer: normalizer, nameKey: nameKey}
}

// NameKey returns the feature property holding the kommune name.
func (e *Enricher) NameKey() string {
	return e.nameKey
}

// Resolve finds the count for a raw boundary name. The normalized name is
// tried first; only when that yields 0 are the raw name, its transliteration
// and its first token tried, in that order. A genuine 0 and a miss both
// resolve to 0.
func (e *Enricher) Resolve(rawName string, lookup Lookup) (int, MatchSource) {
	_, count, source := e.resolve(rawName, lookup)
	return count, source
}

func (e *Enricher) resolve(rawName string, lookup Lookup) (string, int, MatchSource) {
	key := e.normalizer.Normalize(rawName)
	if count := lookup.Get(key); count != 0 {
		return key, count, MatchNormalized
	}

	alternatives := []struct {
		name   string
		source MatchSource
	}{
		{rawName, MatchRaw},
		{Transliterate(rawName), MatchTransliterated},
		{FirstToken(rawName), MatchFirstToken},
	}
	for _, alt := range alternatives {
		if count := lookup.Get(alt.name); count > 0 {
			return alt.name, count, alt.source
		}
	}

	if _, ok := lookup[key]; ok {
		return key, 0, MatchNormalized
	}
	return "", 0, MatchNone
}

// Enrich resolves a count for every feature and stores it under propertyKey
// on a copy of the feature. Features without a name resolve to 0.
func (e *Enricher) Enrich(fc FeatureCollection, lookup Lookup, propertyKey string) *EnrichedCollection {
	out := &EnrichedCollection{
		PropertyKey: propertyKey,
		Features:    make([]EnrichedFeature, 0, len(fc.Features)),
	}
	for _, feature := range fc.Features {
		name, _ := feature.StringProperty(e.nameKey)
		lookupKey, count, source := e.resolve(name, lookup)
		out.Features = append(out.Features, EnrichedFeature{
			Name:      name,
			Key:       e.normalizer.Normalize(name),
			LookupKey: lookupKey,
			Count:     count,
			MatchedBy: source,
			Feature:   feature.WithProperty(propertyKey, count),
		})
	}
	return out
}

// JoinReport lists the two sides of a join that found no partner.
type JoinReport struct {
	PropertyKey string   `json:"propertyKey"`
	Matched     int      `json:"matched"`
	Unmatched   []string `json:"unmatched"`
	Orphans     []string `json:"orphans"`
}

// Report compares an enrichment pass with the lookup it used. Unmatched holds
// boundary names that found no lookup entry; Orphans holds lookup keys no
// feature consumed. Both are sorted.
func (c *EnrichedCollection) Report(lookup Lookup) JoinReport {
	report := JoinReport{PropertyKey: c.PropertyKey, Unmatched: []string{}, Orphans: []string{}}
	used := make(map[string]struct{}, len(c.Features))
	for _, f := range c.Features {
		if f.MatchedBy == MatchNone {
			report.Unmatched = append(report.Unmatched, f.Name)
			continue
		}
		report.Matched++
		used[f.LookupKey] = struct{}{}
	}
	for key := range lookup {
		if _, ok := used[key]; !ok {
			report.Orphans = append(report.Orphans, key)
		}
	}
	sort.Strings(report.Unmatched)
	sort.Strings(report.Orphans)
	return report
}
