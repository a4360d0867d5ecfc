package kommune

import "testing"

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return c.Normalizer()
}

func TestNormalizeKnownVariants(t *testing.T) {
	n := testNormalizer(t)
	cases := map[string]string{
		"Copenhagen":        "København",
		"København":         "København",
		"Høje-Taastrup":     "Taastrup",
		"Lyngby-Taarbæk":    "Lyngby",
		"Ikast-Brande":      "Ikast",
		"Faaborg-Midtfyn":   "Faaborg",
		"Ringkøbing-Skjern": "Ringkøbing",
	}
	for raw, want := range cases {
		if got := n.Normalize(raw); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeTrimsBeforeMatching(t *testing.T) {
	n := testNormalizer(t)
	if got := n.Normalize("  Copenhagen\t"); got != "København" {
		t.Fatalf("expected København for padded Copenhagen, got %q", got)
	}
}

func TestNormalizeUnknownPassesThroughTrimmed(t *testing.T) {
	n := testNormalizer(t)
	if got := n.Normalize(" Aarhus "); got != "Aarhus" {
		t.Fatalf("expected Aarhus, got %q", got)
	}
	if got := n.Normalize(""); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestNormalizeIsCaseSensitive(t *testing.T) {
	n := testNormalizer(t)
	if got := n.Normalize("copenhagen"); got != "copenhagen" {
		t.Fatalf("expected lowercase copenhagen to pass through, got %q", got)
	}
}

func TestNewNormalizerCopiesTable(t *testing.T) {
	table := map[string]string{"A": "B"}
	n := NewNormalizer(table)
	table["A"] = "C"
	if got := n.Normalize("A"); got != "B" {
		t.Fatalf("expected normalizer to keep its own copy, got %q", got)
	}
	variants := n.Variants()
	variants["A"] = "D"
	if got := n.Normalize("A"); got != "B" {
		t.Fatalf("expected Variants to return a copy, got %q", got)
	}
}

func TestTransliterate(t *testing.T) {
	if got := Transliterate("Tårnby Rødovre Sorø Ærø Læsø"); got != "Taarnby Roedovre Soroe Æroe Laesoe" {
		t.Fatalf("unexpected transliteration %q", got)
	}
}

func TestFirstToken(t *testing.T) {
	if got := FirstToken("Lyngby Taarbæk"); got != "Lyngby" {
		t.Fatalf("expected Lyngby, got %q", got)
	}
	if got := FirstToken("Aarhus"); got != "Aarhus" {
		t.Fatalf("expected Aarhus, got %q", got)
	}
}
