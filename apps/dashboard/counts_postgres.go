package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"intlschools/libs/datasets"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const countsTable = "children_counts"

func openCountsDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping counts database: %w", err)
	}
	return db, nil
}

// countColumnIdentifier maps a table header such as "School age" to its
// database column school_age.
func countColumnIdentifier(column string) string {
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(column)))
}

func countsQuery(columns []string) string {
	selected := make([]string, 0, len(columns)+1)
	selected = append(selected, pgx.Identifier{"kommune"}.Sanitize())
	for _, column := range columns {
		selected = append(selected, pgx.Identifier{countColumnIdentifier(column)}.Sanitize())
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY id ASC",
		strings.Join(selected, ", "),
		pgx.Identifier{countsTable}.Sanitize(),
	)
}

// queryCountRows reads count rows from Postgres in insertion order so that
// last-write-wins behaves as it does for the CSV source.
func (a *App) queryCountRows(ctx context.Context, columns []string) ([]datasets.ChildrenRow, error) {
	rows, err := a.db.QueryContext(ctx, countsQuery(columns))
	if err != nil {
		return nil, &datasets.LoadError{Dataset: "children", Path: countsTable, Err: err}
	}
	defer rows.Close()

	var out []datasets.ChildrenRow
	for rows.Next() {
		var name sql.NullString
		values := make([]sql.NullInt64, len(columns))
		dest := make([]any, 0, len(columns)+1)
		dest = append(dest, &name)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &datasets.LoadError{Dataset: "children", Path: countsTable, Err: err}
		}

		row := datasets.ChildrenRow{Kommune: name.String, Counts: make(map[string]int, len(columns))}
		for i, column := range columns {
			row.Counts[column] = int(values[i].Int64)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &datasets.LoadError{Dataset: "children", Path: countsTable, Err: err}
	}
	return out, nil
}
