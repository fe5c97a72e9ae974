package models

import (
	"strconv"
)

// FieldDefinition is one entry of the table's field list
type FieldDefinition struct {
	ID        int    `json:"id"`
	Label     string `json:"label"`
	FieldType string `json:"fieldType,omitempty"`
}

// FieldMap resolves field ids to labels. It is built once per run and never modified.
type FieldMap struct {
	labels map[string]string
	ids    []int
}

// NewFieldMap builds the id -> label mapping and the ordered id list used to query records.
// A field without a label maps to its own id.
func NewFieldMap(defs []FieldDefinition) FieldMap {
	m := FieldMap{
		labels: make(map[string]string, len(defs)),
		ids:    make([]int, 0, len(defs)),
	}
	for _, def := range defs {
		fid := strconv.Itoa(def.ID)
		label := def.Label
		if label == "" {
			label = fid
		}
		m.labels[fid] = label
		m.ids = append(m.ids, def.ID)
	}
	return m
}

// Label returns the label for a field id, or the id itself when the field is unknown.
func (m FieldMap) Label(fieldID string) string {
	if label, ok := m.labels[fieldID]; ok {
		return label
	}
	return fieldID
}

// IDs returns the field ids in the order the API listed them.
func (m FieldMap) IDs() []int {
	out := make([]int, len(m.ids))
	copy(out, m.ids)
	return out
}

// Len returns the number of known fields.
func (m FieldMap) Len() int {
	return len(m.ids)
}
