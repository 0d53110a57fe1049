package store

import (
	"encoding/json"
	"strings"
)

// marshalList converts []string to JSON text for storage.
func marshalList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// unmarshalList converts JSON text back to []string.
func unmarshalList(s string) []string {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var items []string
	_ = json.Unmarshal([]byte(s), &items)
	return items
}

// joinParts and splitParts store a dotted reference path in one column.
func joinParts(parts []string) string {
	return strings.Join(parts, ".")
}

func splitParts(s string) []string {
	return strings.Split(s, ".")
}
