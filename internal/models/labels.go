package models

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
)

// NewLabels encodes an ordered label list (days, slots, subjects) for a JSONB column.
func NewLabels(values []string) types.JSONText {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return types.JSONText(data)
}

// DecodeLabels decodes a JSONB label list. An empty column yields nil.
func DecodeLabels(raw types.JSONText) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var values []string
	if err := raw.Unmarshal(&values); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	return values, nil
}
