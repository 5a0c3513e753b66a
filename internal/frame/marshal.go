package frame

import (
	"encoding/json"
	"fmt"
)

// MarshalRows serializes rows to JSON text for cache persistence.
// This is NOT canonical JSON - floats are expected here. Go's encoder
// sorts map keys, so output is stable for a given row set.
func MarshalRows(rows []Row) (string, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal rows: %w", err)
	}
	return string(data), nil
}

// UnmarshalRows parses JSON text produced by MarshalRows.
func UnmarshalRows(data string) ([]Row, error) {
	if data == "" || data == "[]" {
		return []Row{}, nil
	}
	var rows []Row
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("unmarshal rows: %w", err)
	}
	return rows, nil
}
