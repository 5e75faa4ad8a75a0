package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// timestampLayout is RFC 3339 with fixed-width nanoseconds so that stored
// timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamp formats t the way every relation stores time values.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// NormalizeMetadata returns a copy of m that is safe to serialize: time values
// become RFC 3339 strings (nested maps and slices included) and nil becomes an
// empty map.
func NormalizeMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return Timestamp(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return Timestamp(*t)
	case map[string]any:
		return NormalizeMetadata(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalizeValue(t[i])
		}
		return out
	default:
		return v
	}
}

// DecodeObject turns a stored JSON column into a map. It accepts an already
// decoded map, raw bytes or a string, and unwraps one level of double encoding
// (a JSON string whose content is itself a JSON object).
func DecodeObject(v any) (map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return t, nil
	case []byte:
		return decodeObjectString(string(t), true)
	case string:
		return decodeObjectString(t, true)
	default:
		return nil, fmt.Errorf("unsupported json column type %T", v)
	}
}

func decodeObjectString(s string, unwrap bool) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return nil, err
	}
	switch t := decoded.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return t, nil
	case string:
		if unwrap {
			return decodeObjectString(t, false)
		}
	}
	return nil, fmt.Errorf("json column is %T, not an object", decoded)
}

// AsString converts a scanned column value to a string.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return Timestamp(t)
	default:
		return fmt.Sprint(t)
	}
}

// AsInt64 converts a scanned integer column.
func AsInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case []byte:
		n, _ := strconv.ParseInt(string(t), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
