package datasets

import (
	"fmt"
	"os"
	"strconv"

	"intlschools/libs/kommune"
)

const (
	SchoolNameColumn = "School Name"
	LatitudeColumn   = "Latitude"
	LongitudeColumn  = "Longitude"
	TypeColumn       = "Type"
	ProgramColumn    = "Program"
	LanguageColumn   = "Language"
)

// SchoolRow is one row of a school table. Coordinate is nil when the table has
// no coordinates for the school.
type SchoolRow struct {
	Name       string
	Kommune    string
	Type       string
	Program    string
	Language   string
	Coordinate *kommune.Coordinate
}

// LoadSchools reads a school table. Only the name and kommune columns are
// required.
func LoadSchools(dataset, path string) ([]SchoolRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Dataset: dataset, Path: path, Err: err}
	}
	defer f.Close()

	table, err := ReadTable(f, UTF8)
	if err != nil {
		return nil, &LoadError{Dataset: dataset, Path: path, Err: err}
	}
	rows, err := SchoolsFromTable(table)
	if err != nil {
		return nil, &LoadError{Dataset: dataset, Path: path, Err: err}
	}
	return rows, nil
}

// SchoolsFromTable converts a parsed table into school rows.
func SchoolsFromTable(table *Table) ([]SchoolRow, error) {
	if err := table.Require(SchoolNameColumn, KommuneColumn); err != nil {
		return nil, err
	}
	out := make([]SchoolRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		coord, err := parseCoordinate(row)
		if err != nil {
			return nil, err
		}
		out = append(out, SchoolRow{
			Name:       row.Get(SchoolNameColumn),
			Kommune:    row.Get(KommuneColumn),
			Type:       row.Get(TypeColumn),
			Program:    row.Get(ProgramColumn),
			Language:   row.Get(LanguageColumn),
			Coordinate: coord,
		})
	}
	return out, nil
}

func parseCoordinate(row Row) (*kommune.Coordinate, error) {
	rawLat, rawLng := row.Get(LatitudeColumn), row.Get(LongitudeColumn)
	if rawLat == "" || rawLng == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, &RowError{Line: row.Line, Column: LatitudeColumn, Err: fmt.Errorf("invalid latitude %q", rawLat)}
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, &RowError{Line: row.Line, Column: LongitudeColumn, Err: fmt.Errorf("invalid longitude %q", rawLng)}
	}
	return &kommune.Coordinate{Lat: lat, Lng: lng}, nil
}
