package kommune

// CountRecord is one (kommune, count) row of a count table.
type CountRecord struct {
	Name  string
	Count int
}

// Lookup maps canonical kommune names to counts.
type Lookup map[string]int

// Get returns the count for key, or 0 when the key is absent.
func (l Lookup) Get(key string) int {
	return l[key]
}

// BuildLookup normalizes every record name and inserts its count.
// A later record with the same canonical name overwrites the earlier one.
func BuildLookup(n *Normalizer, records []CountRecord) Lookup {
	lookup, _ := BuildLookupReport(n, records)
	return lookup
}

// BuildLookupReport behaves like BuildLookup and also returns, in order of
// occurrence, the canonical names that were overwritten.
func BuildLookupReport(n *Normalizer, records []CountRecord) (Lookup, []string) {
	lookup := make(Lookup, len(records))
	var overwritten []string
	for _, record := range records {
		key := n.Normalize(record.Name)
		if _, exists := lookup[key]; exists {
			overwritten = append(overwritten, key)
		}
		lookup[key] = record.Count
	}
	return lookup, overwritten
}
