package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

// NormalizeAndSanitizeJSON nudges a role output toward the kind's schema:
//   - renames snake_case/case-drifted keys onto schema names
//   - fills missing and null fields with their defaults
//   - coerces numbers to strings for numeric-as-string fields
//   - removes unknown keys
//
// Category and date values are left for schema validation to judge.
func NormalizeAndSanitizeJSON(kind constants.DocumentKind, raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var changed []string
	if kind == constants.KindOrder {
		changed = sanitizeOrder(m)
	} else {
		changed = sanitizeFlat(kind, m)
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Debug("llm.extract.normalize_sanitize", "kind", kind, "changed", changed)
	}
	return out, changed, nil
}

func sanitizeFlat(kind constants.DocumentKind, m map[string]any) []string {
	changed := make([]string, 0, 8)
	fields := record.Fields(kind)
	allowed := make(map[string]record.FieldType, len(fields))
	for _, f := range fields {
		allowed[f.Name] = f.Type
	}

	renameDrifted(m, fields, &changed)

	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	for _, f := range fields {
		v, ok := m[f.Name]
		switch f.Type {
		case record.TypeBool:
			switch t := v.(type) {
			case bool:
			case string:
				s := strings.ToLower(strings.TrimSpace(t))
				m[f.Name] = s == "true" || s == "si" || s == "sí" || s == "1"
				changed = append(changed, f.Name+"(bool)")
			default:
				m[f.Name] = false
				if ok {
					changed = append(changed, f.Name+"(bool)")
				}
			}
		case record.TypeNumeric:
			switch t := v.(type) {
			case float64:
				m[f.Name] = strconv.FormatFloat(t, 'f', -1, 64)
				changed = append(changed, f.Name+"(number)")
			case string:
				s := strings.TrimSpace(t)
				if s == "" {
					s = "0"
				}
				m[f.Name] = s
			default:
				m[f.Name] = "0"
				changed = append(changed, f.Name+"(default)")
			}
		default:
			switch t := v.(type) {
			case string:
				m[f.Name] = strings.TrimSpace(t)
			case float64:
				m[f.Name] = strconv.FormatFloat(t, 'f', -1, 64)
				changed = append(changed, f.Name+"(number)")
			case nil:
				m[f.Name] = ""
				if ok {
					changed = append(changed, f.Name+"(null)")
				}
			default:
				b, _ := json.Marshal(t)
				m[f.Name] = string(b)
				changed = append(changed, f.Name+"(type)")
			}
		}
	}
	return changed
}

// renameDrifted maps keys such as "stock_minimo" or "Nombre" onto the schema
// name, never overwriting a key already present.
func renameDrifted(m map[string]any, fields []record.Field, changed *[]string) {
	bySquash := make(map[string]string, len(fields))
	for _, f := range fields {
		bySquash[squashKey(f.Name)] = f.Name
	}
	for k, v := range maps.Clone(m) {
		to, ok := bySquash[squashKey(k)]
		if !ok || to == k {
			continue
		}
		if _, exists := m[to]; !exists {
			m[to] = v
		}
		delete(m, k)
		*changed = append(*changed, k+"->"+to)
	}
}

func squashKey(s string) string {
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(s))
}

var orderHeaderKeys = []string{"numeroOrden", "fecha", "cliente", "total"}

func sanitizeOrder(m map[string]any) []string {
	changed := make([]string, 0, 8)

	hdr, ok := m["ordenCompra"].(map[string]any)
	if !ok {
		hdr = map[string]any{}
		m["ordenCompra"] = hdr
		changed = append(changed, "ordenCompra(missing)")
	}
	// header fields emitted at the top level
	for _, k := range orderHeaderKeys {
		if v, ok := m[k]; ok {
			if _, exists := hdr[k]; !exists {
				hdr[k] = v
			}
			delete(m, k)
			changed = append(changed, k+"->ordenCompra."+k)
		}
	}
	for _, k := range []string{"numeroOrden", "fecha", "cliente"} {
		switch t := hdr[k].(type) {
		case string:
			hdr[k] = strings.TrimSpace(t)
		case nil:
			hdr[k] = ""
		default:
			hdr[k] = fmt.Sprint(t)
			changed = append(changed, "ordenCompra."+k+"(type)")
		}
	}
	switch t := hdr["total"].(type) {
	case float64:
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		hdr["total"] = f
		changed = append(changed, "ordenCompra.total(string)")
	default:
		hdr["total"] = 0.0
	}

	items, _ := m["productos"].([]any)
	out := make([]any, 0, len(items))
	for i, it := range items {
		im, ok := it.(map[string]any)
		if !ok {
			changed = append(changed, fmt.Sprintf("productos[%d](dropped)", i))
			continue
		}
		out = append(out, sanitizeLineItem(im))
	}
	m["productos"] = out

	for k := range maps.Clone(m) {
		switch k {
		case "ordenCompra", "productos", "error":
		default:
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}
	return changed
}

func sanitizeLineItem(im map[string]any) map[string]any {
	if v, ok := im["id"]; ok {
		if _, exists := im["id_supabase"]; !exists {
			im["id_supabase"] = v
		}
		delete(im, "id")
	}
	switch t := im["id_supabase"].(type) {
	case float64:
		if t == math.Trunc(t) {
			im["id_supabase"] = int64(t)
		} else {
			im["id_supabase"] = nil
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			im["id_supabase"] = n
		} else {
			im["id_supabase"] = nil
		}
	default:
		im["id_supabase"] = nil
	}

	switch t := im["talla"].(type) {
	case string:
		im["talla"] = strings.TrimSpace(t)
	case float64:
		im["talla"] = strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		im["talla"] = ""
	}

	switch t := im["cantidad"].(type) {
	case float64:
		im["cantidad"] = int(math.Round(t))
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		im["cantidad"] = n
	default:
		im["cantidad"] = 0
	}

	if s, ok := im["nombre"].(string); ok {
		im["nombre"] = strings.TrimSpace(s)
	} else {
		im["nombre"] = ""
	}

	mats := []any{}
	if arr, ok := im["materiales"].([]any); ok {
		for _, e := range arr {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				mats = append(mats, strings.TrimSpace(s))
			}
		}
	}
	im["materiales"] = mats
	return im
}
