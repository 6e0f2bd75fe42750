package feishu

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeList coerces a loosely-typed tool argument into a clean list of
// strings. Tool callers pass identifier lists in whatever shape their host
// produces: a real array, a JSON-encoded array, or free-form separated text.
//
// Behavior:
//   - []string / []any: elements are stringified, trimmed, empties dropped.
//   - string: parsed as JSON first; a JSON array is normalized element-wise.
//     On parse failure (or a non-array result) the value falls back to
//     separator splitting: newlines and semicolons become commas, bracket
//     and quote characters are stripped, then split on commas.
//   - nil or any other type: empty list.
//
// Examples:
//
//	NormalizeList(`["a", "b" ]`)  // ["a", "b"]
//	NormalizeList("a,b , c")      // ["a", "b", "c"]
//	NormalizeList("")             // []
func NormalizeList(value any) []string {
	switch v := value.(type) {
	case []string:
		return trimNonEmpty(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, stringify(item))
		}
		return trimNonEmpty(items)
	case string:
		return normalizeString(v)
	default:
		return []string{}
	}
}

func normalizeString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}

	var parsed []any
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		items := make([]string, 0, len(parsed))
		for _, item := range parsed {
			items = append(items, stringify(item))
		}
		return trimNonEmpty(items)
	}

	cleaned := strings.NewReplacer(
		"\n", ",",
		";", ",",
		"{", "",
		"}", "",
		"[", "",
		"]", "",
		`"`, "",
		"'", "",
	).Replace(s)

	return trimNonEmpty(strings.Split(cleaned, ","))
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		// JSON numbers decode as float64; render integers without a
		// fractional part.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func trimNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
