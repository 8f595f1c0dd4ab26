package record

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// lookup finds key in m, tolerating case and snake_case drift from models.
func lookup(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	want := squash(key)
	for k, v := range m {
		if squash(k) == want {
			return v, true
		}
	}
	return nil, false
}

func squash(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return joinNonEmpty(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, toString(e))
		}
		return joinNonEmpty(parts)
	case map[string]any:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func joinNonEmpty(parts []string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "si", "sí", "yes", "1", "verdadero", "x":
			return true
		}
	}
	return false
}

var reNumber = regexp.MustCompile(`-?\d+(?:[.,]\d+)*`)

// cleanNumeric extracts the first number in s and renders it as a plain
// decimal ("45,50 €" -> "45.50", "1.234,5" -> "1234.5", "2.550.000" -> "2550000").
func cleanNumeric(s string) (string, bool) {
	tok := reNumber.FindString(strings.ReplaceAll(s, " ", ""))
	if tok == "" {
		return "", false
	}
	neg := strings.HasPrefix(tok, "-")
	tok = strings.TrimPrefix(tok, "-")

	lastDot := strings.LastIndex(tok, ".")
	lastComma := strings.LastIndex(tok, ",")
	var intPart, frac string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep := lastDot
		if lastComma > lastDot {
			sep = lastComma
		}
		intPart, frac = tok[:sep], tok[sep+1:]
	case lastDot >= 0 || lastComma >= 0:
		sep := max(lastDot, lastComma)
		tail := tok[sep+1:]
		// repeated separators, or a single one followed by exactly three
		// digits, group thousands ("2.550.000", "1.500")
		if strings.Count(tok, tok[sep:sep+1]) > 1 || len(tail) == 3 {
			intPart = tok
		} else {
			intPart, frac = tok[:sep], tail
		}
	default:
		intPart = tok
	}
	intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)
	if intPart == "" {
		intPart = "0"
	}
	out := intPart
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	if _, err := strconv.ParseFloat(out, 64); err != nil {
		return "", false
	}
	return out, true
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		if s, ok := cleanNumeric(t); ok {
			f, _ := strconv.ParseFloat(s, 64)
			return f
		}
	}
	return 0
}

func toInt(v any) int {
	f := toFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}

// toIDPtr reads a catalog id; absent, null and unparseable values are nil.
func toIDPtr(v any) *int64 {
	switch t := v.(type) {
	case nil:
		return nil
	case *int64:
		if t == nil {
			return nil
		}
		return Int64(*t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		if _, ok := cleanNumeric(s); !ok {
			return nil
		}
	case bool, map[string]any, []any:
		return nil
	}
	return Int64(int64(toInt(v)))
}

func toStringSlice(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, e := range t {
			if s := toString(e); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func toMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func toSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	}
	return nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"02/01/06",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

var spanishMonths = map[string]string{
	"enero": "01", "febrero": "02", "marzo": "03", "abril": "04", "mayo": "05", "junio": "06",
	"julio": "07", "agosto": "08", "septiembre": "09", "setiembre": "09", "octubre": "10",
	"noviembre": "11", "diciembre": "12",
}

var reSpanishDate = regexp.MustCompile(`(?i)^(\d{1,2})\s+de\s+([a-záéíóú]+)\s+(?:de|del)\s+(\d{4})$`)

// normalizeDate renders day-first and ISO dates as YYYY-MM-DD.
func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	if m := reSpanishDate.FindStringSubmatch(s); m != nil {
		if mm, ok := spanishMonths[strings.ToLower(m[2])]; ok {
			day, _ := strconv.Atoi(m[1])
			iso := fmt.Sprintf("%s-%s-%02d", m[3], mm, day)
			if t, err := time.Parse("2006-01-02", iso); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
	}
	return "", false
}
