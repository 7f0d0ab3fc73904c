package platform

import (
	"encoding/json"
	"time"
)

// Accessors for decoding records the way the app treats remote rows:
// unknown fields ignored, missing or mistyped fields defaulted. JSON
// numbers arrive as float64, so integer reads accept both.

// String returns the field as a string, or "" when absent.
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Int64 returns the field as an int64, or 0 when absent.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Bool returns the field as a bool, or false when absent.
func (r Record) Bool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// OptString returns the field as a *string, or nil when absent or null.
func (r Record) OptString(key string) *string {
	if v, ok := r[key].(string); ok {
		return &v
	}
	return nil
}

// Time parses the field as an RFC 3339 timestamp, or returns the zero
// time when absent or unparseable.
func (r Record) Time(key string) time.Time {
	s, ok := r[key].(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Has reports whether the field is present and non-null.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}
