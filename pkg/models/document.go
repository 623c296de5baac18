package models

import "fmt"

// Document is a permissive bag of named values with caller-defined shape.
// Trigger payloads and action configurations are stored as documents; the
// engine validates only the fields it actually reads.
type Document map[string]any

// String returns the value under key as a string. Numeric values are
// formatted, which matters for identifiers that arrive as JSON numbers.
func (d Document) String(key string) (string, bool) {
	value, ok := d[key]
	if !ok || value == nil {
		return "", false
	}

	switch v := value.(type) {
	case string:
		if v == "" {
			return "", false
		}

		return v, true
	case float64:
		return fmt.Sprintf("%v", v), true
	case int:
		return fmt.Sprintf("%d", v), true
	case int64:
		return fmt.Sprintf("%d", v), true
	default:
		return "", false
	}
}

// StringOr returns the value under key as a string, or fallback when the key
// is absent or not representable as a string.
func (d Document) StringOr(key, fallback string) string {
	value, ok := d.String(key)
	if !ok {
		return fallback
	}

	return value
}

// Int returns the value under key as an int. JSON decoding produces float64,
// so both are accepted.
func (d Document) Int(key string) (int, bool) {
	value, ok := d[key]
	if !ok || value == nil {
		return 0, false
	}

	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Merge returns a copy of the document with the entries of other laid on top.
// The receiver is not modified.
func (d Document) Merge(other Document) Document {
	merged := make(Document, len(d)+len(other))
	for k, v := range d {
		merged[k] = v
	}

	for k, v := range other {
		merged[k] = v
	}

	return merged
}
