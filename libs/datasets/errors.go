package datasets

import "fmt"

// LoadError reports a dataset that could not be loaded. A render pass that
// hits one renders nothing.
type LoadError struct {
	Dataset string
	Path    string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s): %v", e.Dataset, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RowError points at the offending line and column of a table.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// MissingColumnError is returned when a table lacks a required column.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}
