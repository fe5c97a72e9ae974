// Package report joins fetched records with their downloaded attachments and
// writes the spreadsheet report.
package report

import (
	"github.com/qbfetch/qbfetch/internal/constants"
	"github.com/qbfetch/qbfetch/internal/models"
)

// AttachmentLookup resolves a record id to its local attachment filename ("" if none).
type AttachmentLookup interface {
	Filename(recordID string) string
}

// BuildRows produces one row per record, in record order. Field ids become
// labels through fields (unknown ids keep the raw id); values are copied verbatim.
// Each row ends with the LocalAttachment column. Records without a record id
// are joined on "unknown".
func BuildRows(records []*models.Record, fields models.FieldMap, attachments AttachmentLookup) []*models.ReportRow {
	rows := make([]*models.ReportRow, 0, len(records))
	for _, rec := range records {
		row := models.NewReportRow(rec.Len() + 1)
		for _, fieldID := range rec.Keys() {
			fv, _ := rec.Get(fieldID)
			row.Set(fields.Label(fieldID), fv.Value)
		}

		recordID, ok := rec.ID()
		if !ok {
			recordID = constants.UnknownRecordID
		}
		filename := ""
		if attachments != nil {
			filename = attachments.Filename(recordID)
		}
		row.Set(constants.LocalAttachmentColumn, filename)

		rows = append(rows, row)
	}
	return rows
}

// Headers returns the union of the rows' columns in first-encounter order.
// LocalAttachment is always present, even when there are no rows.
func Headers(rows []*models.ReportRow) []string {
	var headers []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, col := range row.Columns() {
			if !seen[col] {
				seen[col] = true
				headers = append(headers, col)
			}
		}
	}
	if !seen[constants.LocalAttachmentColumn] {
		headers = append(headers, constants.LocalAttachmentColumn)
	}
	return headers
}
