package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/qbfetch/qbfetch/internal/models"
)

func TestSetOutcomes(t *testing.T) {
	m := &Manifest{}
	m.SetOutcomes([]models.AttachmentResult{
		{RecordID: "10", LocalFilename: "10_B.pdf", Size: 3, SHA256: "abc"},
		{RecordID: "2", Err: errors.New("HTTP 404")},
		{RecordID: "9", LocalFilename: "9_A.pdf", Size: 5, SHA256: "def"},
	}, 4)

	if m.Summary.Downloaded != 2 || m.Summary.Failed != 1 || m.Summary.Skipped != 4 {
		t.Errorf("Summary = %+v", m.Summary)
	}

	var order []string
	for _, e := range m.Entries {
		order = append(order, e.RecordID)
	}
	if strings.Join(order, ",") != "2,9,10" {
		t.Errorf("entry order = %v, want 2,9,10", order)
	}
	if e := m.Entries[0]; e.Status != StatusFailed || e.Error != "HTTP 404" || e.File != "" {
		t.Errorf("failed entry = %+v", e)
	}
	if e := m.Entries[2]; e.Status != StatusDownloaded || e.File != "10_B.pdf" || e.Size != 3 {
		t.Errorf("downloaded entry = %+v", e)
	}
}

func TestWriteAndRead(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := &Manifest{
		RunID:          "run-1",
		TableID:        "bqabc",
		FileFieldID:    7,
		StartedAt:      started,
		FinishedAt:     started.Add(time.Minute),
		DownloadFolder: "downloads",
		Report:         "report.xlsx",
		Summary:        Summary{Records: 3},
	}
	m.SetOutcomes([]models.AttachmentResult{
		{RecordID: "1", LocalFilename: "1_A.pdf", Size: 5, SHA256: "aa"},
	}, 0)

	path := filepath.Join(t.TempDir(), "out", "manifest.yaml")
	if err := Write(path, m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"run_id: run-1", "table_id: bqabc", "record_id: \"1\"", "file: 1_A.pdf", "sha256: aa"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("manifest missing %q:\n%s", want, data)
		}
	}
	if strings.Contains(string(data), "error:") {
		t.Errorf("successful entry should not carry an error field:\n%s", data)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.RunID != "run-1" || got.Summary.Records != 3 || got.Summary.Downloaded != 1 {
		t.Errorf("Read() = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if len(got.Entries) != 1 || got.Entries[0].RecordID != "1" {
		t.Errorf("Entries = %+v", got.Entries)
	}
}

func TestRead_Missing(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing manifest")
	}
}
