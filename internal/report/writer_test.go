package report

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/qbfetch/qbfetch/internal/constants"
	"github.com/qbfetch/qbfetch/internal/models"
)

func TestWriter_LinkTarget(t *testing.T) {
	tests := []struct {
		name     string
		folder   string
		style    string
		filename string
		want     string
	}{
		{"default folder", "downloads", constants.LinkStyleWindows, "1_A.pdf", `file:downloads\1_A.pdf`},
		{"trailing separator", `downloads\`, constants.LinkStyleWindows, "1_A.pdf", `file:downloads\1_A.pdf`},
		{"nested folder", "out/files", constants.LinkStyleWindows, "2_B.pdf", `file:out\files\2_B.pdf`},
		{"native", "out", constants.LinkStyleNative, "3_C.pdf", "file:" + filepath.Join("out", "3_C.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(tt.folder, tt.style)
			if got := w.LinkTarget(tt.filename); got != tt.want {
				t.Errorf("LinkTarget(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestNewWriter_Defaults(t *testing.T) {
	w := NewWriter("", "")
	if w.DownloadFolder != constants.DefaultDownloadFolder || w.LinkStyle != constants.LinkStyleWindows {
		t.Errorf("NewWriter defaults = %+v", w)
	}
}

func TestWriter_Write(t *testing.T) {
	records := []*models.Record{
		models.NewRecord().Set("3", json.Number("1")).Set("6", "Alpha").Set("7", map[string]any{"url": "/a"}),
		models.NewRecord().Set("3", json.Number("2")).Set("6", "Beta"),
		models.NewRecord().Set("3", json.Number("3")).Set("6", "Gamma").Set("7", map[string]any{"url": "/b"}),
	}
	rows := BuildRows(records, testFields(), lookup{"1": "1_A.pdf", "3": "3_B.pdf"})

	path := filepath.Join(t.TempDir(), "reports", "report.xlsx")
	if err := NewWriter("downloads", constants.LinkStyleWindows).Write(path, rows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); !reflect.DeepEqual(sheets, []string{"Report"}) {
		t.Errorf("sheets = %v, want [Report]", sheets)
	}

	got, err := f.GetRows("Report")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d rows (with header), want 4", len(got))
	}
	wantHeader := []string{"Record ID#", "Name", "LocalAttachment", "Invoice"}
	if !reflect.DeepEqual(got[0], wantHeader) {
		t.Errorf("header = %v, want %v", got[0], wantHeader)
	}
	if got[1][0] != "1" || got[1][1] != "Alpha" || got[1][2] != "1_A.pdf" {
		t.Errorf("row for record 1 = %v", got[1])
	}
	if got[2][0] != "2" || len(got[2]) > 2 && got[2][2] != "" {
		t.Errorf("row for record 2 = %v, want empty LocalAttachment", got[2])
	}
	if got[3][2] != "3_B.pdf" {
		t.Errorf("row for record 3 = %v", got[3])
	}

	links := map[string]string{"C2": `file:downloads\1_A.pdf`, "C4": `file:downloads\3_B.pdf`}
	for cell, want := range links {
		ok, target, err := f.GetCellHyperLink("Report", cell)
		if err != nil || !ok {
			t.Errorf("%s: no hyperlink (err=%v)", cell, err)
			continue
		}
		if target != want {
			t.Errorf("%s link = %q, want %q", cell, target, want)
		}
	}
	if ok, _, _ := f.GetCellHyperLink("Report", "C3"); ok {
		t.Error("record without attachment should not have a hyperlink")
	}
}

func TestWriter_WriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := NewWriter("", "").Write(path, nil); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	got, err := f.GetRows("Report")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(got) != 1 || !reflect.DeepEqual(got[0], []string{"LocalAttachment"}) {
		t.Errorf("rows = %v, want header only", got)
	}
}

func TestWriter_WriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	w := NewWriter("", "")

	first := BuildRows([]*models.Record{
		models.NewRecord().Set("3", json.Number("1")),
		models.NewRecord().Set("3", json.Number("2")),
	}, testFields(), nil)
	if err := w.Write(path, first); err != nil {
		t.Fatalf("first Write() error = %v", err)
	}

	second := BuildRows([]*models.Record{models.NewRecord().Set("3", json.Number("9"))}, testFields(), nil)
	if err := w.Write(path, second); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()
	got, _ := f.GetRows("Report")
	if len(got) != 2 || got[1][0] != "9" {
		t.Errorf("rows after overwrite = %v", got)
	}
}
