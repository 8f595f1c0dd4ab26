// Package heuristic extracts best-effort field mappings from raw document text
// without any model. Its output is a draft mapping; record.Normalize types it.
package heuristic

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

// MaterialLookup resolves catalog materials by product id.
type MaterialLookup interface {
	Materials(id int64) []string
}

const descripcionLimit = 200

// Extract dispatches on kind.
func Extract(kind constants.DocumentKind, text string, lookup MaterialLookup) map[string]any {
	if kind == constants.KindOrder {
		return Order(text, lookup)
	}
	return Flat(kind, text)
}

type labelRule struct {
	field   string
	re      *regexp.Regexp
	exclude *regexp.Regexp
}

func label(field, pattern string) labelRule {
	return labelRule{field: field, re: regexp.MustCompile(`(?im)^[ \t\-*•]*(?:` + pattern + `)[^:\n]{0,20}:[ \t]*(.+)$`)}
}

func (r labelRule) except(pattern string) labelRule {
	r.exclude = regexp.MustCompile(`(?i)` + pattern)
	return r
}

func (r labelRule) find(text string) string {
	for _, m := range r.re.FindAllStringSubmatch(text, -1) {
		if r.exclude != nil && r.exclude.MatchString(m[0]) {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return ""
}

// labelled lines ("Precio por metro: 45.50€"); only fields of the kind apply
var labelRules = []labelRule{
	label("referencia", `referencia|ref\.?|c[óo]digo`),
	label("unidades", `unidad(?:es)?(?: de medida)?`),
	label("stockMinimo", `stock m[íi]nimo|m[íi]nimo`),
	label("stock", `stock|existencias|cantidad disponible`).except(`m[íi]nimo`),
	label("precio", `precio|valor unitario|costo`),
	label("categoria", `categor[íi]a|tipo`),
	label("proveedor", `proveedor|fabricante`),
	label("fechaAdquisicion", `fecha de (?:compra|adquisici[óo]n)|fecha`).except(`mantenimiento`),
	label("ubicacion", `ubicaci[óo]n|almac[ée]n`),
	label("tallas", `tallas?`),
	label("colores", `colou?r(?:es)?`),
	label("tiempoFabricacion", `tiempo de fabricaci[óo]n`),
	label("modelo", `modelo`),
	label("numeroSerie", `n[úu]mero de serie|serie|serial`),
	label("estado", `estado`),
	label("ultimoMantenimiento", `[úu]ltimo mantenimiento`),
	label("proximoMantenimiento", `pr[óo]ximo mantenimiento`),
	label("responsable", `responsable|encargado`),
}

// Flat builds the fallback mapping of a flat kind: the first short line as
// nombre, the leading text as descripcion, numerics at "0", plus whatever
// labelled lines the text carries.
func Flat(kind constants.DocumentKind, text string) map[string]any {
	out := make(map[string]any)
	fields := record.Fields(kind)
	has := make(map[string]record.FieldType, len(fields))
	for _, f := range fields {
		has[f.Name] = f.Type
		switch f.Type {
		case record.TypeNumeric:
			out[f.Name] = "0"
		case record.TypeBool:
			out[f.Name] = false
		default:
			out[f.Name] = ""
		}
	}

	out["nombre"] = record.Sentinel(kind)
	if name := FirstNameLine(text); name != "" {
		out["nombre"] = name
	}
	out["descripcion"] = record.NoDescription
	if strings.TrimSpace(text) != "" {
		out["descripcion"] = truncateRunes(text, descripcionLimit)
	}

	seen := make(map[string]bool)
	for _, r := range labelRules {
		if _, ok := has[r.field]; !ok || seen[r.field] {
			continue
		}
		if v := r.find(text); v != "" {
			out[r.field] = v
			seen[r.field] = true
		}
	}
	return out
}

var pageMarker = regexp.MustCompile(`^-{3} Page \d+ -{3}$`)

// FirstNameLine returns the first trimmed line longer than 3 and shorter
// than 50 characters, skipping page markers.
func FirstNameLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if pageMarker.MatchString(line) {
			continue
		}
		if n := utf8.RuneCountInString(line); n > 3 && n < 50 {
			return line
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
