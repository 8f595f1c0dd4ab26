package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FromMap reads one catalog row as decoded from JSON. Rows without a usable
// id are rejected.
func FromMap(m map[string]any) (Record, bool) {
	id, ok := asInt64(m["id"])
	if !ok {
		return Record{}, false
	}
	rec := Record{
		ID:         id,
		Nombre:     asString(m["nombre"]),
		Stock:      asFloat(m["stock"]),
		Materiales: asStrings(m["materiales"]),
		Extra:      map[string]any{},
	}
	for k, v := range m {
		switch k {
		case "id", "nombre", "stock", "materiales":
		default:
			rec.Extra[k] = v
		}
	}
	return rec, true
}

// decodeRows decodes a JSON array of rows, skipping the unusable ones.
func decodeRows(raw []byte) ([]Record, error) {
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		if rec, ok := FromMap(row); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int64(t), true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	}
	return 0
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// asStrings accepts a JSON array, a JSON-encoded array string or a comma
// separated list.
func asStrings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s := asString(e); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "[") {
			var arr []any
			if json.Unmarshal([]byte(s), &arr) == nil {
				return asStrings(arr)
			}
		}
		// postgres array literal {a,b}
		s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
		for _, part := range strings.Split(s, ",") {
			if part = strings.Trim(strings.TrimSpace(part), `"`); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
