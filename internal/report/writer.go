package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/qbfetch/qbfetch/internal/constants"
	"github.com/qbfetch/qbfetch/internal/models"
)

// Writer writes report rows to an xlsx workbook with a single "Report" sheet.
type Writer struct {
	// DownloadFolder is the folder part of every attachment link.
	DownloadFolder string

	// LinkStyle is constants.LinkStyleWindows (backslash separators) or constants.LinkStyleNative.
	LinkStyle string
}

// NewWriter creates a Writer.
func NewWriter(downloadFolder, linkStyle string) *Writer {
	if downloadFolder == "" {
		downloadFolder = constants.DefaultDownloadFolder
	}
	if linkStyle == "" {
		linkStyle = constants.LinkStyleWindows
	}
	return &Writer{DownloadFolder: downloadFolder, LinkStyle: linkStyle}
}

// LinkTarget returns the hyperlink target for a downloaded attachment:
// "file:<folder><sep><filename>".
func (w *Writer) LinkTarget(filename string) string {
	if w.LinkStyle == constants.LinkStyleNative {
		return "file:" + filepath.Join(w.DownloadFolder, filename)
	}
	p := strings.TrimRight(w.DownloadFolder, `/\`) + `\` + filename
	return "file:" + strings.ReplaceAll(p, "/", `\`)
}

// Write saves rows to path, replacing any existing file.
// Non-empty LocalAttachment cells become hyperlinks whose text is the filename.
func (w *Writer) Write(path string, rows []*models.ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := constants.ReportSheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	linkStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "0563C1", Underline: "single"},
	})
	if err != nil {
		return fmt.Errorf("failed to create link style: %w", err)
	}

	headers := Headers(rows)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", header, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header %s: %w", header, err)
		}
	}

	for r, row := range rows {
		rowNum := r + 2
		for col, header := range headers {
			value, ok := row.Get(header)
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return err
			}

			if header == constants.LocalAttachmentColumn {
				if err := w.writeLink(f, sheet, cell, row.LocalAttachment(), linkStyle); err != nil {
					return err
				}
				continue
			}

			if err := setCellValue(f, sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return nil
}

// writeLink writes a hyperlink cell for filename. Empty filenames stay plain empty cells.
func (w *Writer) writeLink(f *excelize.File, sheet, cell, filename string, style int) error {
	if filename == "" {
		return nil
	}
	if err := f.SetCellStr(sheet, cell, filename); err != nil {
		return fmt.Errorf("failed to write %s: %w", cell, err)
	}
	display := filename
	if err := f.SetCellHyperLink(sheet, cell, w.LinkTarget(filename), "External", excelize.HyperlinkOpts{Display: &display}); err != nil {
		return fmt.Errorf("failed to link %s: %w", cell, err)
	}
	return f.SetCellStyle(sheet, cell, cell, style)
}

// setCellValue writes scalars with their native type. Nested values are written as compact JSON.
func setCellValue(f *excelize.File, sheet, cell string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return f.SetCellStr(sheet, cell, v)
	case bool:
		return f.SetCellBool(sheet, cell, v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return f.SetCellInt(sheet, cell, i)
		}
		if fl, err := v.Float64(); err == nil {
			return f.SetCellFloat(sheet, cell, fl, -1, 64)
		}
		return f.SetCellStr(sheet, cell, v.String())
	case float64:
		return f.SetCellFloat(sheet, cell, v, -1, 64)
	case int:
		return f.SetCellInt(sheet, cell, int64(v))
	case int64:
		return f.SetCellInt(sheet, cell, v)
	default:
		return f.SetCellStr(sheet, cell, models.FormatValue(v))
	}
}
