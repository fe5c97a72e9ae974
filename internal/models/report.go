package models

import (
	"github.com/qbfetch/qbfetch/internal/constants"
)

// ReportRow is one output row: label -> value pairs in insertion order.
// Assigning an existing label overwrites the value but keeps its position.
type ReportRow struct {
	columns []string
	values  map[string]any
}

// NewReportRow creates an empty row with room for n columns.
func NewReportRow(n int) *ReportRow {
	return &ReportRow{
		columns: make([]string, 0, n),
		values:  make(map[string]any, n),
	}
}

// Set assigns a column value.
func (r *ReportRow) Set(column string, value any) {
	if _, seen := r.values[column]; !seen {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the value of a column.
func (r *ReportRow) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the row's column labels in insertion order.
func (r *ReportRow) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// LocalAttachment returns the downloaded filename for the row, or "".
func (r *ReportRow) LocalAttachment() string {
	v, ok := r.values[constants.LocalAttachmentColumn]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
