package record

import "github.com/thereallexluttor/AaaS-Zapateria/constants"

// FieldType is the semantic type of a schema field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeNumeric          // decimal carried as a string, default "0"
	TypeDate             // YYYY-MM-DD or ""
	TypeCategory         // one of constants.AllowedValues(kind) or ""
	TypeBool
)

// Field is one entry of a flat target schema.
type Field struct {
	Name        string
	Type        FieldType
	Description string
}

var materialFields = []Field{
	{"nombre", TypeString, "Nombre del material"},
	{"referencia", TypeString, "Referencia o código interno"},
	{"unidades", TypeString, "Unidad de medida (metros, kg, litros, unidades, etc.)"},
	{"stock", TypeNumeric, "Cantidad disponible (solo números)"},
	{"stockMinimo", TypeNumeric, "Cantidad mínima para alerta (solo números)"},
	{"precio", TypeNumeric, "Precio por unidad (solo números)"},
	{"categoria", TypeCategory, "Tipo de material"},
	{"proveedor", TypeString, "Nombre del proveedor"},
	{"descripcion", TypeString, "Descripción detallada del material"},
	{"fechaAdquisicion", TypeDate, "Fecha de compra (YYYY-MM-DD)"},
	{"ubicacion", TypeString, "Ubicación física en almacén"},
}

var productFields = []Field{
	{"nombre", TypeString, "Nombre del producto"},
	{"precio", TypeNumeric, "Precio de venta (solo números)"},
	{"stock", TypeNumeric, "Cantidad disponible (solo números)"},
	{"stockMinimo", TypeNumeric, "Cantidad mínima para alerta (solo números)"},
	{"categoria", TypeCategory, "Tipo de calzado"},
	{"descripcion", TypeString, "Descripción detallada del producto"},
	{"tallas", TypeString, "Tallas disponibles (formato: 36, 37, 38...)"},
	{"colores", TypeString, "Colores disponibles (formato: Negro, Marrón, Azul...)"},
	{"tiempoFabricacion", TypeString, "Tiempo estimado de fabricación (formato: 3-5 días)"},
	{"destacado", TypeBool, "Si es un producto destacado (true/false)"},
}

var toolFields = []Field{
	{"nombre", TypeString, "Nombre de la herramienta"},
	{"modelo", TypeString, "Modelo o referencia del fabricante"},
	{"numeroSerie", TypeString, "Número de serie"},
	{"estado", TypeCategory, "Estado de la herramienta"},
	{"fechaAdquisicion", TypeDate, "Fecha de compra (YYYY-MM-DD)"},
	{"ultimoMantenimiento", TypeDate, "Fecha del último mantenimiento (YYYY-MM-DD)"},
	{"proximoMantenimiento", TypeDate, "Fecha del próximo mantenimiento (YYYY-MM-DD)"},
	{"ubicacion", TypeString, "Ubicación en el taller"},
	{"responsable", TypeString, "Persona responsable"},
	{"descripcion", TypeString, "Descripción detallada de la herramienta"},
}

// Fields returns the flat schema of kind. Orders are nested and have none.
func Fields(kind constants.DocumentKind) []Field {
	var src []Field
	switch kind {
	case constants.KindMaterial:
		src = materialFields
	case constants.KindProduct:
		src = productFields
	case constants.KindTool:
		src = toolFields
	default:
		return nil
	}
	out := make([]Field, len(src))
	copy(out, src)
	return out
}

// FieldNames lists the schema's top-level keys in declaration order.
func FieldNames(kind constants.DocumentKind) []string {
	if kind == constants.KindOrder {
		return []string{"ordenCompra", "productos"}
	}
	fields := Fields(kind)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Identity sentinels substituted when the identity field ends up blank.
const (
	SentinelMaterial = "Material sin identificar"
	SentinelProduct  = "Producto sin identificar"
	SentinelTool     = "Herramienta sin identificar"
	SentinelOrder    = "Orden sin identificar"

	// Unrecognized marks a record built from a draft of no known shape.
	Unrecognized = "Formato no reconocido"
	// InsufficientData marks a record built from text too short to analyse.
	InsufficientData = "Sin datos suficientes"
	// NoDescription is the heuristic descripcion for empty input.
	NoDescription = "Sin descripción"
	// UnnamedLineItem names order lines whose product name could not be read.
	UnnamedLineItem = "Producto sin nombre"
	// UnspecifiedSize is the talla of an order line that declared none.
	UnspecifiedSize = "No especificado"
)

// Sentinel returns the identity sentinel of kind.
func Sentinel(kind constants.DocumentKind) string {
	switch kind {
	case constants.KindProduct:
		return SentinelProduct
	case constants.KindTool:
		return SentinelTool
	case constants.KindOrder:
		return SentinelOrder
	default:
		return SentinelMaterial
	}
}
