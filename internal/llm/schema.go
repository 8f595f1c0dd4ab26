package llm

import (
	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

// BuildSchema returns the JSON-Schema of kind as a generic map. It is given
// to the formatting role as the output contract and used locally to validate.
func BuildSchema(kind constants.DocumentKind) map[string]any {
	if kind == constants.KindOrder {
		return orderSchema()
	}

	fields := record.Fields(kind)
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props[f.Name] = fieldProp(kind, f)
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func fieldProp(kind constants.DocumentKind, f record.Field) map[string]any {
	p := map[string]any{"description": f.Description}
	switch f.Type {
	case record.TypeNumeric:
		p["type"] = "string"
		p["pattern"] = `^-?\d+(\.\d+)?$`
	case record.TypeDate:
		p["type"] = "string"
		p["pattern"] = `^(\d{4}-\d{2}-\d{2})?$`
	case record.TypeCategory:
		p["type"] = "string"
		p["enum"] = append(constants.AllowedValues(kind), "")
	case record.TypeBool:
		p["type"] = "boolean"
	default:
		p["type"] = "string"
	}
	return p
}

func orderSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"nombre":      map[string]any{"type": "string"},
			"id_supabase": map[string]any{"type": []any{"integer", "null"}},
			"talla":       map[string]any{"type": "string"},
			"cantidad":    map[string]any{"type": "integer", "minimum": 0},
			"materiales":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"nombre", "id_supabase", "talla", "cantidad", "materiales"},
	}
	header := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"numeroOrden": map[string]any{"type": "string"},
			"fecha":       map[string]any{"type": "string", "pattern": `^(\d{4}-\d{2}-\d{2})?$`},
			"cliente":     map[string]any{"type": "string"},
			"total":       map[string]any{"type": "number"},
		},
		"required": []string{"numeroOrden", "fecha", "cliente", "total"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ordenCompra": header,
			"productos":   map[string]any{"type": "array", "items": item},
			"error":       map[string]any{"type": "string"},
		},
		"required": []string{"ordenCompra", "productos"},
	}
}
