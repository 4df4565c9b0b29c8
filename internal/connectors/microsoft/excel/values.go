package excel

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Raw configuration comes from JSON, TOML or YAML, so scalar values may be
// strings, json.Number, int, int64 or float64.

// stringValue returns the value at key as a string; absent and null are "".
func stringValue(raw map[string]any, key string) string {
	return asString(raw[key])
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// present reports whether key holds a non-null, non-empty value.
func present(raw map[string]any, key string) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func intValue(raw map[string]any, key string, def int) (int, error) {
	if !present(raw, key) {
		return def, nil
	}
	f, err := floatValue(raw, key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, &ConfigurationError{Field: key, Reason: "must be an integer"}
	}
	return int(f), nil
}

func floatValue(raw map[string]any, key string, def float64) (float64, error) {
	if !present(raw, key) {
		return def, nil
	}

	var f float64
	var err error
	switch t := raw[key].(type) {
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint64:
		f = float64(t)
	case float64:
		f = t
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		err = fmt.Errorf("unsupported type %T", t)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ConfigurationError{Field: key, Reason: "must be a number"}
	}
	return f, nil
}

// stringList accepts a list of strings or a comma-separated string.
func stringList(raw map[string]any, key string) []string {
	var items []string
	switch t := raw[key].(type) {
	case []string:
		items = t
	case []any:
		for _, v := range t {
			items = append(items, asString(v))
		}
	case string:
		items = strings.Split(t, ",")
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
