package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeList decodes a JSON array. A literal null is an empty list; any
// other non-array body is ErrUnexpectedShape. Elements are decoded one by
// one: a field of the wrong type is left zero and the rest of the record and
// of the list is kept, with the first such problem returned as
// ErrUnexpectedShape alongside the items.
func decodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if trimmed[0] != '[' {
		return []T{}, fmt.Errorf("%w: expected array, got %s", ErrUnexpectedShape, describeJSON(trimmed))
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return []T{}, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}

	items := make([]T, len(raw))
	var firstErr error
	for i, elem := range raw {
		if err := json.Unmarshal(elem, &items[i]); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: element %d: %v", ErrUnexpectedShape, i, err)
		}
	}
	return items, firstErr
}

// decodeWrappedList accepts either a bare array or an object holding the
// array under key.
func decodeWrappedList[T any](data []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return []T{}, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		inner, ok := wrapper[key]
		if !ok {
			return []T{}, fmt.Errorf("%w: object without %q", ErrUnexpectedShape, key)
		}
		return decodeList[T](inner)
	}
	return decodeList[T](trimmed)
}

func describeJSON(b []byte) string {
	switch b[0] {
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	default:
		if (b[0] >= '0' && b[0] <= '9') || b[0] == '-' {
			return "number"
		}
		return "invalid JSON"
	}
}
