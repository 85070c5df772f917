// v2
// coerce.go
package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// toFloat converts v to float64 if possible.
func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("cannot parse float from %T", v)
	}
}

// toInt converts v to int if possible. Fractional values are rejected so a
// device id like "2.5" never silently truncates.
func toInt(v any) (int, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Errorf("not an integer: %v", v)
	}
	return n, nil
}

// toTime converts v to time.Time if possible. Accepts RFC3339(Nano) strings
// and unix seconds or milliseconds (the export flips between them across
// firmware versions).
func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return unixAuto(n), nil
		}
		return time.Time{}, fmt.Errorf("bad timestamp string: %q", t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return unixAuto(n), nil
		}
		return time.Time{}, fmt.Errorf("bad timestamp number: %v", t)
	case float64:
		return unixAuto(int64(t)), nil
	case int64:
		return unixAuto(t), nil
	case int:
		return unixAuto(int64(t)), nil
	default:
		return time.Time{}, fmt.Errorf("cannot parse time from %T", v)
	}
}

// unixAuto treats values above 1e12 as milliseconds, otherwise seconds.
func unixAuto(n int64) time.Time {
	if n > 1_000_000_000_000 {
		return time.Unix(0, n*int64(time.Millisecond)).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// isEmpty reports whether a raw field value counts as "not present".
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
