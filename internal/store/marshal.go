package store

import (
	"encoding/json"
	"fmt"
)

// marshalJSON encodes a record column as JSON TEXT.
func marshalJSON(column string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", column, err)
	}
	return string(data), nil
}

// unmarshalJSON decodes a JSON TEXT column into v.
func unmarshalJSON(column, data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", column, err)
	}
	return nil
}
