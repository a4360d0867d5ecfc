package datasets

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"intlschools/libs/kommune"
)

// KommuneColumn is the kommune name column shared by every table.
const KommuneColumn = "Kommune"

// ChildrenRow is one kommune of the children table with the requested count
// columns.
type ChildrenRow struct {
	Kommune string
	Counts  map[string]int
}

// LoadChildren reads the children table and parses the given count columns.
func LoadChildren(path string, enc Encoding, countColumns []string) ([]ChildrenRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Dataset: "children", Path: path, Err: err}
	}
	defer f.Close()

	table, err := ReadTable(f, enc)
	if err != nil {
		return nil, &LoadError{Dataset: "children", Path: path, Err: err}
	}
	rows, err := ChildrenFromTable(table, countColumns)
	if err != nil {
		return nil, &LoadError{Dataset: "children", Path: path, Err: err}
	}
	return rows, nil
}

// ChildrenFromTable converts a parsed table into children rows.
func ChildrenFromTable(table *Table, countColumns []string) ([]ChildrenRow, error) {
	if err := table.Require(append([]string{KommuneColumn}, countColumns...)...); err != nil {
		return nil, err
	}
	out := make([]ChildrenRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		counts := make(map[string]int, len(countColumns))
		for _, column := range countColumns {
			n, err := ParseCount(row.Get(column))
			if err != nil {
				return nil, &RowError{Line: row.Line, Column: column, Err: err}
			}
			counts[column] = n
		}
		out = append(out, ChildrenRow{Kommune: row.Values[KommuneColumn], Counts: counts})
	}
	return out, nil
}

// ParseCount parses a count cell. Empty cells count as 0; decimal values are
// rounded.
func ParseCount(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	return int(math.Round(f)), nil
}

// CountRecords projects one count column into join records, in table order.
func CountRecords(rows []ChildrenRow, column string) []kommune.CountRecord {
	out := make([]kommune.CountRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, kommune.CountRecord{Name: r.Kommune, Count: r.Counts[column]})
	}
	return out
}
