package models

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/qbfetch/qbfetch/internal/constants"
)

func TestRecordUnmarshal_PreservesKeyOrder(t *testing.T) {
	data := []byte(`{"6": {"value": "Acme"}, "3": {"value": 12}, "14": {"value": {"url": "/f", "versions": [1]}}, "7": {"value": null}}`)

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	want := []string{"6", "3", "14", "7"}
	if got := rec.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	id, ok := rec.ID()
	if !ok || id != "12" {
		t.Errorf("ID() = %q, %v; want \"12\", true", id, ok)
	}
}

func TestRecordUnmarshal_RejectsNonObject(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`[1,2]`), &rec); err == nil {
		t.Fatal("expected error for array input")
	}
}

func TestRecordID_Missing(t *testing.T) {
	rec := NewRecord().Set("6", "name")
	if _, ok := rec.ID(); ok {
		t.Error("ID() should report missing record id")
	}
}

func TestRecordHasValue(t *testing.T) {
	rec := NewRecord().
		Set("1", nil).
		Set("2", "").
		Set("3", json.Number("0")).
		Set("4", map[string]any{}).
		Set("5", []any{}).
		Set("6", map[string]any{"url": "/files/x"}).
		Set("7", "text").
		Set("8", false)

	tests := []struct {
		fieldID string
		want    bool
	}{
		{"1", false},
		{"2", false},
		{"3", false},
		{"4", false},
		{"5", false},
		{"6", true},
		{"7", true},
		{"8", false},
		{"99", false},
	}
	for _, tt := range tests {
		if got := rec.HasValue(tt.fieldID); got != tt.want {
			t.Errorf("HasValue(%s) = %v, want %v", tt.fieldID, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"json number", json.Number("42"), "42"},
		{"integral float", float64(7), "7"},
		{"fraction", 1.5, "1.5"},
		{"bool", true, "true"},
		{"object", map[string]any{"a": 1}, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.input); got != tt.want {
				t.Errorf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFieldMap(t *testing.T) {
	m := NewFieldMap([]FieldDefinition{
		{ID: 3, Label: "Record ID#"},
		{ID: 6, Label: "Name"},
		{ID: 9},
	})

	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
	if got := m.Label("6"); got != "Name" {
		t.Errorf("Label(6) = %q, want Name", got)
	}
	if got := m.Label("9"); got != "9" {
		t.Errorf("Label(9) = %q, want fallback to id", got)
	}
	if got := m.Label("42"); got != "42" {
		t.Errorf("Label(42) = %q, want fallback to id", got)
	}
	if got := m.IDs(); !reflect.DeepEqual(got, []int{3, 6, 9}) {
		t.Errorf("IDs() = %v", got)
	}
}

func TestReportRow_OverwriteKeepsPosition(t *testing.T) {
	row := NewReportRow(3)
	row.Set("Name", "a")
	row.Set("Size", 1)
	row.Set("Name", "b")
	row.Set(constants.LocalAttachmentColumn, "1_A.pdf")

	if got := row.Columns(); !reflect.DeepEqual(got, []string{"Name", "Size", "LocalAttachment"}) {
		t.Errorf("Columns() = %v", got)
	}
	if v, _ := row.Get("Name"); v != "b" {
		t.Errorf("Name = %v, want b", v)
	}
	if row.LocalAttachment() != "1_A.pdf" {
		t.Errorf("LocalAttachment() = %q", row.LocalAttachment())
	}
}
