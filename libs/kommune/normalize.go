package kommune

import "strings"

// Normalizer turns a kommune name as spelled by any of the input datasets into
// the canonical join key.
type Normalizer struct {
	variants map[string]string
}

// NewNormalizer creates a Normalizer over a copy of the given variant table.
// Keys are matched exactly (case-sensitive) after trimming the input.
func NewNormalizer(variants map[string]string) *Normalizer {
	table := make(map[string]string, len(variants))
	for observed, canonical := range variants {
		table[observed] = canonical
	}
	return &Normalizer{variants: table}
}

// Normalize trims the name and resolves it against the variant table.
// Names not present in the table are returned trimmed.
func (n *Normalizer) Normalize(raw string) string {
	name := strings.TrimSpace(raw)
	if n == nil {
		return name
	}
	if canonical, ok := n.variants[name]; ok {
		return canonical
	}
	return name
}

// Variants returns a copy of the variant table.
func (n *Normalizer) Variants() map[string]string {
	out := make(map[string]string, len(n.variants))
	for k, v := range n.variants {
		out[k] = v
	}
	return out
}

var danishLetters = strings.NewReplacer("ø", "oe", "å", "aa", "æ", "ae")

// Transliterate replaces the lower-case Danish letters ø, å and æ with their
// ASCII digraphs. Upper-case forms are left alone.
func Transliterate(name string) string {
	return danishLetters.Replace(name)
}

// FirstToken returns the first space-delimited token of name.
func FirstToken(name string) string {
	token, _, _ := strings.Cut(name, " ")
	return token
}
