package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/qbfetch/qbfetch/internal/constants"
)

// FieldValue wraps a single cell of a record as returned by the query endpoint.
// Value is opaque: string, json.Number, bool, nil, or a nested object/array.
type FieldValue struct {
	Value any `json:"value"`
}

// Record is one row of the queried table, keyed by field id.
// Key order is the order the API returned them in.
type Record struct {
	keys   []string
	fields map[string]FieldValue
}

// NewRecord creates an empty record. Mostly useful for tests and fixtures.
func NewRecord() *Record {
	return &Record{fields: make(map[string]FieldValue)}
}

// Set assigns a field value, keeping the position of an existing key.
func (r *Record) Set(fieldID string, value any) *Record {
	if r.fields == nil {
		r.fields = make(map[string]FieldValue)
	}
	if _, seen := r.fields[fieldID]; !seen {
		r.keys = append(r.keys, fieldID)
	}
	r.fields[fieldID] = FieldValue{Value: value}
	return r
}

// UnmarshalJSON decodes a record object while preserving key order.
// Numbers are kept as json.Number so record ids render exactly as sent.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}

	r.keys = nil
	r.fields = make(map[string]FieldValue)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read record key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected record key %v", tok)
		}
		var fv FieldValue
		if err := dec.Decode(&fv); err != nil {
			return fmt.Errorf("failed to decode field %s: %w", key, err)
		}
		if _, seen := r.fields[key]; !seen {
			r.keys = append(r.keys, key)
		}
		r.fields[key] = fv
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close record: %w", err)
	}
	return nil
}

// Keys returns the field ids in source order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value stored under a field id.
func (r *Record) Get(fieldID string) (FieldValue, bool) {
	fv, ok := r.fields[fieldID]
	return fv, ok
}

// Len returns the number of fields in the record.
func (r *Record) Len() int {
	return len(r.keys)
}

// ID returns the record id held in the built-in record id field.
func (r *Record) ID() (string, bool) {
	fv, ok := r.fields[constants.RecordIDFieldID]
	if !ok || fv.Value == nil {
		return "", false
	}
	return FormatValue(fv.Value), true
}

// HasValue reports whether a field is present with a non-empty value.
// Empty means null, "", 0, false, or an empty object or array.
func (r *Record) HasValue(fieldID string) bool {
	fv, ok := r.fields[fieldID]
	if !ok {
		return false
	}
	return !isEmptyValue(fv.Value)
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case float64:
		return val == 0
	case int:
		return val == 0
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}

// FormatValue renders a field value as text. Integral numbers have no fraction,
// nested values become compact JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return strings.TrimSpace(string(data))
	}
}
