package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

// Role names, also used as log and metric labels.
const (
	RoleExtraction = "extraction"
	RoleFormatting = "formatting"
	RoleComparison = "comparison"
)

const orderStructure = `{
  "ordenCompra": {
    "numeroOrden": "string",
    "fecha": "YYYY-MM-DD",
    "cliente": "string",
    "total": number
  },
  "productos": [
    {
      "nombre": "string",
      "id_supabase": number,
      "talla": "string",
      "cantidad": number,
      "materiales": ["string"]
    }
  ]
}`

var subject = map[constants.DocumentKind]string{
	constants.KindMaterial: "footwear manufacturing materials",
	constants.KindProduct:  "footwear products",
	constants.KindTool:     "workshop tools",
	constants.KindOrder:    "purchase orders",
}

// Roles returns the pipeline roles of kind in execution order.
func Roles(kind constants.DocumentKind) []Role {
	if kind == constants.KindOrder {
		return []Role{orderExtraction(), orderFormatting(), orderComparison()}
	}
	fields := strings.Join(record.FieldNames(kind), ", ")
	extraction := Role{
		Name: RoleExtraction,
		Instructions: []string{
			"You are a specialized information extraction agent.",
			fmt.Sprintf("Extract relevant information about %s from the given text.", subject[kind]),
			"Your goal is to identify key information that would be useful for filling out an inventory form.",
			"The fields to extract are: " + fields + ".",
			"Output must be a valid JSON object with all these fields included, even if some are empty.",
			"Use camelCase for compound field names exactly as listed.",
		},
	}
	formatting := Role{
		Name: RoleFormatting,
		Instructions: []string{
			"You are a data formatting specialist.",
			fmt.Sprintf("Format and validate extracted %s information to ensure it's ready for the inventory form.", subject[kind]),
			"Ensure dates are in correct format (YYYY-MM-DD).",
			"Numeric fields contain only digits and an optional decimal point, as strings.",
			"Provide default values for missing but important fields.",
			"Ensure 'nombre' is always filled - infer it from the description if needed.",
			"Output must be a valid JSON object with these exact fields in camelCase format: " + fields + ".",
		},
	}
	if allowed := constants.AllowedValues(kind); len(allowed) > 0 {
		field := "categoria"
		if kind == constants.KindTool {
			field = "estado"
		}
		formatting.Instructions = append(formatting.Instructions,
			fmt.Sprintf("Ensure the '%s' field has a valid value (%s) or is empty.", field, strings.Join(allowed, ", ")))
	}
	return []Role{extraction, formatting}
}

func orderExtraction() Role {
	return Role{
		Name: RoleExtraction,
		Instructions: []string{
			"You are a specialized information extraction agent for purchase orders.",
			"Extract relevant information from the given text of a purchase order.",
			"Your goal is to identify key information such as order number, date, products, sizes, and quantities.",
			"The output MUST follow this EXACT structure:",
			orderStructure,
			"Ensure all fields are included, even if some values are null or empty strings.",
			"Use camelCase for all field names exactly as shown above.",
			"If there are multiple sizes for a product but only one quantity, create separate entries for each size with the same quantity.",
			"For materials, include all materials mentioned for the product in the array.",
		},
	}
}

func orderFormatting() Role {
	return Role{
		Name: RoleFormatting,
		Instructions: []string{
			"You are a data formatting specialist for purchase orders.",
			"Format and validate extracted purchase order information.",
			"Ensure dates are in correct format (YYYY-MM-DD).",
			"Ensure product IDs are numeric values.",
			"Ensure quantities are numeric values.",
			"For each size of a product, create a separate entry in the productos array.",
			"If there's only one quantity for multiple sizes, use that quantity for each size entry.",
			"The output MUST follow this EXACT structure:",
			orderStructure,
		},
	}
}

func orderComparison() Role {
	return Role{
		Name: RoleComparison,
		Instructions: []string{
			"You are a data comparison specialist.",
			"Compare the extracted purchase order data with the product database.",
			"Match products in the order with products in the database using names and IDs.",
			"For each product size, specify the quantity requested.",
			"If there is only one quantity number but multiple sizes, assume it's the same quantity for each size.",
			"Extract the materials information from the product database for each product.",
			"The output MUST follow this EXACT structure:",
			orderStructure,
		},
	}
}

// System renders the role instructions as one system message.
func (r Role) System() string {
	return strings.Join(r.Instructions, "\n") + "\nRespond with ONLY one JSON object. No text before or after it."
}

// ExtractionPrompt is the user message of the first role.
func ExtractionPrompt(kind constants.DocumentKind, text string) string {
	var b strings.Builder
	if kind == constants.KindOrder {
		b.WriteString("Analiza la siguiente orden de compra y extrae todos sus detalles:\n\nORDEN DE COMPRA (extraída por OCR):\n```\n")
		b.WriteString(text)
		b.WriteString("\n```\n\nExtrae número de orden, fecha, cliente, productos solicitados (nombre, ID, tallas, cantidades) y total de la orden.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Analiza el siguiente texto y extrae toda la información relevante para un formulario de inventario de %s:\n\n```\n", spanishSubject(kind))
	b.WriteString(text)
	b.WriteString("\n```\n\nTu objetivo es identificar y extraer información para los siguientes campos:\n")
	for _, f := range record.Fields(kind) {
		desc := f.Description
		if f.Type == record.TypeCategory {
			desc += " (" + strings.Join(constants.AllowedValues(kind), ", ") + ")"
		}
		fmt.Fprintf(&b, "- %s: %s\n", f.Name, desc)
	}
	b.WriteString(`
IMPORTANTE:
1. Devuelve ÚNICAMENTE un objeto JSON válido con estos campos exactos.
2. Usa el formato camelCase para los nombres compuestos.
3. Si no encuentras alguna información específica, incluye el campo con valor vacío o 0.
4. No incluyas ningún texto adicional antes o después del JSON.
`)
	return b.String()
}

// FormattingPrompt hands the extraction output and the schema to the
// formatting role. The source text stays in context.
func FormattingPrompt(kind constants.DocumentKind, text, extracted string) string {
	schema, _ := json.MarshalIndent(BuildSchema(kind), "", "  ")
	var b strings.Builder
	b.WriteString("Texto original:\n```\n")
	b.WriteString(text)
	b.WriteString("\n```\n\nDatos extraídos:\n```json\n")
	b.WriteString(StripCodeFences(extracted))
	b.WriteString("\n```\n\nFormatea y valida los datos extraídos. El resultado debe cumplir este JSON Schema:\n```json\n")
	b.Write(schema)
	b.WriteString("\n```\nResponde SOLO con el JSON válido, nada más.\n")
	return b.String()
}

// ComparisonPrompt cross-references the formatted order against the catalog.
func ComparisonPrompt(text, formatted string, snap *catalog.Snapshot) string {
	rows := make([]map[string]any, 0, snap.Len())
	for _, r := range snap.Records() {
		rows = append(rows, r.Map())
	}
	productos, _ := json.Marshal(rows)

	var b strings.Builder
	b.WriteString("Analiza la siguiente orden de compra y compárala con los datos de productos:\n\nORDEN DE COMPRA (extraída por OCR):\n```\n")
	b.WriteString(text)
	b.WriteString("\n```\n\nORDEN FORMATEADA:\n```json\n")
	b.WriteString(StripCodeFences(formatted))
	b.WriteString("\n```\n\nDATOS DE PRODUCTOS:\n```json\n")
	b.Write(productos)
	b.WriteString(`
` + "```" + `

Tu objetivo es:
1. Identificar el ID de producto correspondiente a cada producto de la orden.
2. Para cada talla, especificar la cantidad solicitada.
3. Si solo hay un número de cantidad y varias tallas, asumir que es la misma cantidad para cada talla.
4. Extraer los materiales de cada producto de la base de datos. Si no hay información de materiales, usa un array vacío.

IMPORTANTE:
1. Devuelve el objeto JSON con EXACTAMENTE la estructura especificada.
2. Asegúrate de que todos los campos estén presentes.
3. NO incluyas ningún texto explicativo antes o después del JSON.
`)
	return b.String()
}

func spanishSubject(kind constants.DocumentKind) string {
	switch kind {
	case constants.KindProduct:
		return "productos de calzado"
	case constants.KindTool:
		return "herramientas de taller"
	default:
		return "materiales para fabricación de calzado"
	}
}
