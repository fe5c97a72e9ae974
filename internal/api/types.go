package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/qbfetch/qbfetch/internal/models"
)

// fieldsResponse decodes GET /v1/fields. The endpoint answers with a bare list of
// field objects; an object wrapping the list under "fields" is accepted too.
// Any other JSON shape yields no fields.
type fieldsResponse struct {
	Fields []models.FieldDefinition
}

func (r *fieldsResponse) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	r.Fields = nil
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &r.Fields); err != nil {
			return fmt.Errorf("field list: %w", err)
		}
	case '{':
		var wrapped struct {
			Fields []models.FieldDefinition `json:"fields"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return fmt.Errorf("field object: %w", err)
		}
		r.Fields = wrapped.Fields
	}
	return nil
}

type queryOptions struct {
	Skip int `json:"skip"`
	Top  int `json:"top"`
}

// queryRequest is the body of POST /v1/records/query.
type queryRequest struct {
	From    string       `json:"from"`
	Select  []int        `json:"select"`
	Options queryOptions `json:"options"`
}

type queryMetadata struct {
	TotalRecords int `json:"totalRecords"`
	NumRecords   int `json:"numRecords"`
	NumFields    int `json:"numFields"`
	Skip         int `json:"skip"`
}

type queryResponse struct {
	Data     []*models.Record `json:"data"`
	Metadata *queryMetadata   `json:"metadata"`
}
