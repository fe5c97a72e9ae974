// Package manifest writes a YAML record of what an export run downloaded.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/qbfetch/qbfetch/internal/models"
)

// Entry statuses
const (
	StatusDownloaded = "downloaded"
	StatusFailed     = "failed"
)

// Manifest describes a single export run.
type Manifest struct {
	RunID          string    `yaml:"run_id"`
	TableID        string    `yaml:"table_id"`
	FileFieldID    int       `yaml:"file_field_id"`
	StartedAt      time.Time `yaml:"started_at"`
	FinishedAt     time.Time `yaml:"finished_at"`
	DownloadFolder string    `yaml:"download_folder"`
	Report         string    `yaml:"report"`
	Summary        Summary   `yaml:"summary"`
	Entries        []Entry   `yaml:"entries"`
}

// Summary holds the run totals.
type Summary struct {
	Records    int `yaml:"records"`
	Downloaded int `yaml:"downloaded"`
	Failed     int `yaml:"failed"`
	Skipped    int `yaml:"skipped"`
}

// Entry is the outcome of one attachment download.
type Entry struct {
	RecordID string `yaml:"record_id"`
	Status   string `yaml:"status"`
	File     string `yaml:"file,omitempty"`
	Size     int64  `yaml:"size,omitempty"`
	SHA256   string `yaml:"sha256,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// SetOutcomes fills Entries and the download counters from the run's results.
// Entries are ordered by record id, numerically when the ids are numbers.
func (m *Manifest) SetOutcomes(outcomes []models.AttachmentResult, skipped int) {
	m.Entries = make([]Entry, 0, len(outcomes))
	m.Summary.Downloaded, m.Summary.Failed = 0, 0
	m.Summary.Skipped = skipped

	for _, res := range outcomes {
		e := Entry{RecordID: res.RecordID}
		if res.Succeeded() {
			e.Status = StatusDownloaded
			e.File = res.LocalFilename
			e.Size = res.Size
			e.SHA256 = res.SHA256
			m.Summary.Downloaded++
		} else {
			e.Status = StatusFailed
			if res.Err != nil {
				e.Error = res.Err.Error()
			}
			m.Summary.Failed++
		}
		m.Entries = append(m.Entries, e)
	}

	sort.SliceStable(m.Entries, func(i, j int) bool {
		return lessRecordID(m.Entries[i].RecordID, m.Entries[j].RecordID)
	})
}

// lessRecordID orders shorter ids first so "9" sorts before "10".
func lessRecordID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Write saves the manifest as YAML, creating the parent directory if needed.
func Write(path string, m *Manifest) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush manifest: %w", err)
	}
	return f.Close()
}

// Read loads a manifest written by Write.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
