package heuristic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

var (
	// "(ID 42)" and its common OCR misread "(1D 42)"
	reLineMarker = regexp.MustCompile(`\([I1l]D`)
	reID         = regexp.MustCompile(`\(?[I1l]D\s*:?\s*(\d+)\)?`)
	reQuantity   = regexp.MustCompile(`(?:^|[^\p{L}])[x×]\s*(\d+)`)
	reCantidad   = regexp.MustCompile(`(?i)\bcant(?:idad)?\.?\s*:?\s*(\d+)`)
	reSize       = regexp.MustCompile(`\b\d{2}\b`)
	reBullet     = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s+`)

	reOrderNumber = []*regexp.Regexp{
		regexp.MustCompile(`\b(OC[-\s]?\d[\w-]*)\b`),
		regexp.MustCompile(`(?i)(?:orden(?:[ \t]+de[ \t]+compra)?|pedido)[ \t]*(?:n[°ºo]?\.?|#|número|numero)?[ \t]*:?[ \t]*([A-Z]{0,4}-?\d[\w-]*)`),
	}
	reFechaLabel = regexp.MustCompile(`(?im)^[^\n]*?\bfecha\b[^:\n]{0,20}:\s*([^\n]+)$`)
	reDateISO    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	reDateDMY    = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	reCliente    = regexp.MustCompile(`(?im)\bcliente\b\s*:?\s*([^\n]+)$`)
	reTotal      = regexp.MustCompile(`(?im)^[ \t]*(?:valor\s+)?total\b[^:\n]{0,20}:\s*([^\n]+)$`)
)

// Order scans order text into {"ordenCompra": header, "productos": lines}.
func Order(text string, lookup MaterialLookup) map[string]any {
	lines := OrderLines(text, lookup)
	items := make([]any, len(lines))
	for i, l := range lines {
		items[i] = l
	}
	return map[string]any{
		"ordenCompra": OrderHeader(text),
		"productos":   items,
	}
}

// OrderHeader extracts what it can of the order header.
func OrderHeader(text string) map[string]any {
	hdr := map[string]any{"numeroOrden": "", "fecha": "", "cliente": "", "total": 0.0}

	for _, re := range reOrderNumber {
		if m := re.FindStringSubmatch(text); m != nil {
			hdr["numeroOrden"] = strings.Join(strings.Fields(m[1]), "-")
			break
		}
	}

	hdr["fecha"] = orderDate(text)

	if m := reCliente.FindStringSubmatch(text); m != nil {
		hdr["cliente"] = strings.TrimSpace(m[1])
	}
	// the last "Total:" line; earlier ones tend to be per-line totals
	if all := reTotal.FindAllStringSubmatch(text, -1); len(all) > 0 {
		hdr["total"] = strings.TrimSpace(all[len(all)-1][1])
	}
	return hdr
}

// orderDate prefers a labelled date, then the first date-shaped token.
// Unparseable labelled values are kept for the normalizer to judge.
func orderDate(text string) string {
	if m := reFechaLabel.FindStringSubmatch(text); m != nil {
		s := strings.TrimSpace(m[1])
		if d := reDateISO.FindString(s); d != "" {
			return d
		}
		if d := reDateDMY.FindString(s); d != "" {
			return d
		}
		return s
	}
	if d := reDateISO.FindString(text); d != "" {
		return d
	}
	return reDateDMY.FindString(text)
}

// OrderLines emits one line item per declared size of every line carrying an
// "(ID nn)" marker, each with the line's quantity. Best effort: lines whose
// size or quantity formatting differs from that shape are read as far as the
// patterns reach.
func OrderLines(text string, lookup MaterialLookup) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(text, "\n") {
		loc := reLineMarker.FindStringIndex(line)
		if loc == nil {
			continue
		}

		var id *int64
		rest := line
		if m := reID.FindStringSubmatchIndex(line); m != nil {
			if n, err := strconv.ParseInt(line[m[2]:m[3]], 10, 64); err == nil {
				id = record.Int64(n)
			}
			rest = line[:m[0]] + " " + line[m[1]:]
		}

		cantidad := 1
		if m := reQuantity.FindStringSubmatchIndex(rest); m != nil {
			cantidad, _ = strconv.Atoi(rest[m[2]:m[3]])
			rest = rest[:m[0]] + " " + rest[m[1]:]
		} else if m := reCantidad.FindStringSubmatchIndex(rest); m != nil {
			cantidad, _ = strconv.Atoi(rest[m[2]:m[3]])
			rest = rest[:m[0]] + " " + rest[m[1]:]
		}

		sizes := uniq(reSize.FindAllString(rest, -1))
		if len(sizes) == 0 {
			sizes = []string{record.UnspecifiedSize}
		}

		nombre := lineName(line[:loc[0]], line)
		materiales := []string{}
		if id != nil && lookup != nil {
			materiales = lookup.Materials(*id)
		}

		for _, talla := range sizes {
			var idVal any
			if id != nil {
				idVal = *id
			}
			mats := make([]string, len(materiales))
			copy(mats, materiales)
			out = append(out, map[string]any{
				"nombre":      nombre,
				"id_supabase": idVal,
				"talla":       talla,
				"cantidad":    cantidad,
				"materiales":  mats,
			})
		}
	}
	return out
}

// lineName prefers the text before the id marker and falls back to the
// line's first three words.
func lineName(prefix, line string) string {
	name := strings.TrimSpace(reBullet.ReplaceAllString(strings.TrimSpace(prefix), ""))
	if name != "" {
		return name
	}
	words := strings.Fields(line)
	if len(words) >= 3 {
		return strings.Join(words[:3], " ")
	}
	return record.UnnamedLineItem
}

func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
