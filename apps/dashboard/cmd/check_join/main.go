package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"intlschools/libs/datasets"
	"intlschools/libs/kommune"
)

func main() {
	boundaryFile := flag.String("boundaries", "kommuner.geojson", "GeoJSON boundary file")
	childrenFile := flag.String("children", "children.csv", "children count table")
	encodingName := flag.String("encoding", string(datasets.CP1252), "children table encoding (utf-8 or cp1252)")
	nameKey := flag.String("name-key", "KOMNAVN", "feature property holding the kommune name")
	catalogFile := flag.String("catalog", "", "catalog YAML (defaults to the built-in catalog)")
	viewID := flag.String("view", "", "only check this view")
	strict := flag.Bool("strict", false, "exit 1 when any municipality is unmatched")
	flag.Parse()

	catalog, err := loadCatalog(*catalogFile)
	if err != nil {
		panic(err)
	}
	encoding, err := datasets.ParseEncoding(*encodingName)
	if err != nil {
		panic(err)
	}

	views := catalog.Views
	if *viewID != "" {
		view, ok := catalog.View(*viewID)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown view: %s\n", *viewID)
			os.Exit(2)
		}
		views = []kommune.View{view}
	}

	columns := make([]string, 0, len(views))
	for _, view := range views {
		columns = append(columns, view.CountColumn)
	}

	boundaries, err := datasets.LoadBoundaries(*boundaryFile, *nameKey)
	if err != nil {
		panic(err)
	}
	children, err := datasets.LoadChildren(*childrenFile, encoding, columns)
	if err != nil {
		panic(err)
	}

	normalizer := catalog.Normalizer()
	enricher := kommune.NewEnricher(normalizer, *nameKey)

	unmatchedTotal := 0
	for _, view := range views {
		lookup, overwritten := kommune.BuildLookupReport(normalizer, datasets.CountRecords(children, view.CountColumn))
		report := enricher.Enrich(boundaries, lookup, view.PropertyKey).Report(lookup)
		unmatchedTotal += len(report.Unmatched)

		fmt.Printf("%s: %d of %d municipalities matched\n", view.ID, report.Matched, report.Matched+len(report.Unmatched))
		printList("unmatched municipalities", report.Unmatched)
		printList("unused count rows", report.Orphans)
		printList("duplicate count rows (last wins)", overwritten)
	}

	if *strict && unmatchedTotal > 0 {
		os.Exit(1)
	}
}

func loadCatalog(path string) (*kommune.Catalog, error) {
	if path == "" {
		return kommune.DefaultCatalog()
	}
	return kommune.LoadCatalog(path)
}

func printList(title string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Printf("  %s (%d): %s\n", title, len(values), strings.Join(values, ", "))
}
