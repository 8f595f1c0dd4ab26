package record

import (
	"log/slog"
	"strings"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

// Normalizer turns a recovered mapping into a schema-complete record.
// It is total: any input, including nil, yields a record. Schema violations
// are repaired and logged, never returned.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize uses the default logger.
func Normalize(kind constants.DocumentKind, m map[string]any) Record {
	return NewNormalizer(nil).Normalize(kind, m)
}

func (n *Normalizer) Normalize(kind constants.DocumentKind, m map[string]any) Record {
	if kind == constants.KindOrder {
		return n.NormalizeOrder(m)
	}
	values := n.flat(kind, m)
	switch kind {
	case constants.KindProduct:
		return Product{
			Nombre:            values["nombre"].(string),
			Precio:            values["precio"].(string),
			Stock:             values["stock"].(string),
			StockMinimo:       values["stockMinimo"].(string),
			Categoria:         values["categoria"].(string),
			Descripcion:       values["descripcion"].(string),
			Tallas:            values["tallas"].(string),
			Colores:           values["colores"].(string),
			TiempoFabricacion: values["tiempoFabricacion"].(string),
			Destacado:         values["destacado"].(bool),
		}
	case constants.KindTool:
		return Tool{
			Nombre:               values["nombre"].(string),
			Modelo:               values["modelo"].(string),
			NumeroSerie:          values["numeroSerie"].(string),
			Estado:               values["estado"].(string),
			FechaAdquisicion:     values["fechaAdquisicion"].(string),
			UltimoMantenimiento:  values["ultimoMantenimiento"].(string),
			ProximoMantenimiento: values["proximoMantenimiento"].(string),
			Ubicacion:            values["ubicacion"].(string),
			Responsable:          values["responsable"].(string),
			Descripcion:          values["descripcion"].(string),
		}
	default:
		return Material{
			Nombre:           values["nombre"].(string),
			Referencia:       values["referencia"].(string),
			Unidades:         values["unidades"].(string),
			Stock:            values["stock"].(string),
			StockMinimo:      values["stockMinimo"].(string),
			Precio:           values["precio"].(string),
			Categoria:        values["categoria"].(string),
			Proveedor:        values["proveedor"].(string),
			Descripcion:      values["descripcion"].(string),
			FechaAdquisicion: values["fechaAdquisicion"].(string),
			Ubicacion:        values["ubicacion"].(string),
		}
	}
}

// flat copies every declared field, applies defaults, validates the typed
// fields and repairs whatever fails.
func (n *Normalizer) flat(kind constants.DocumentKind, m map[string]any) map[string]any {
	if kind != constants.KindProduct && kind != constants.KindTool {
		kind = constants.KindMaterial
	}
	fields := Fields(kind)
	values := make(map[string]any, len(fields))
	v := common.NewValidator()

	for _, f := range fields {
		raw, _ := lookup(m, f.Name)
		switch f.Type {
		case TypeBool:
			values[f.Name] = toBool(raw)
			continue
		case TypeNumeric:
			s := toString(raw)
			if s == "" {
				s = "0"
			}
			values[f.Name] = s
			v.Field(f.Name, s, common.Numeric)
		case TypeDate:
			s := toString(raw)
			values[f.Name] = s
			v.Field(f.Name, s, common.Date)
		case TypeCategory:
			s := toString(raw)
			values[f.Name] = s
			v.Field(f.Name, s, common.OneOf(constants.AllowedValues(kind)...))
		default:
			values[f.Name] = toString(raw)
		}
	}

	if v.HasErrors() {
		repaired := make([]string, 0, len(v.Errors()))
		for _, ve := range v.Errors() {
			values[ve.Field] = repairField(kind, fieldType(fields, ve.Field), values[ve.Field].(string))
			repaired = append(repaired, ve.Field)
		}
		n.logger.Debug("record.schema_violation",
			"code", common.CodeSchemaViolation,
			"kind", kind,
			"fields", repaired,
			"detail", v.ErrorMessage(),
		)
	}

	if strings.TrimSpace(values["nombre"].(string)) == "" {
		values["nombre"] = Sentinel(kind)
	}
	return values
}

func fieldType(fields []Field, name string) FieldType {
	for _, f := range fields {
		if f.Name == name {
			return f.Type
		}
	}
	return TypeString
}

// repairField coerces an invalid value into the field's domain, falling back
// to the field default.
func repairField(kind constants.DocumentKind, t FieldType, s string) string {
	switch t {
	case TypeNumeric:
		if out, ok := cleanNumeric(s); ok {
			return out
		}
		return "0"
	case TypeDate:
		if out, ok := normalizeDate(s); ok {
			return out
		}
		return ""
	case TypeCategory:
		if c, ok := constants.Canonicalize(kind, s); ok {
			return string(c)
		}
		return ""
	}
	return s
}

// NormalizeOrder accepts either {"ordenCompra": {...}, "productos": [...]}
// or a flat mapping carrying the header keys at the top level.
func (n *Normalizer) NormalizeOrder(m map[string]any) Order {
	hdrSrc := m
	if raw, ok := lookup(m, "ordenCompra"); ok {
		if hm, ok := toMap(raw); ok {
			hdrSrc = hm
		}
	}

	hdr := Header{
		NumeroOrden: toString(first(hdrSrc, "numeroOrden", "numero", "orden")),
		Fecha:       toString(first(hdrSrc, "fecha")),
		Cliente:     toString(first(hdrSrc, "cliente")),
		Total:       toFloat(first(hdrSrc, "total")),
	}
	v := common.NewValidator().Field("ordenCompra.fecha", hdr.Fecha, common.Date)
	if v.HasErrors() {
		hdr.Fecha = repairField(constants.KindOrder, TypeDate, hdr.Fecha)
		n.logger.Debug("record.schema_violation",
			"code", common.CodeSchemaViolation,
			"kind", constants.KindOrder,
			"detail", v.ErrorMessage(),
		)
	}
	if strings.TrimSpace(hdr.NumeroOrden) == "" {
		hdr.NumeroOrden = SentinelOrder
	}

	rawItems, _ := lookup(m, "productos")
	items := make([]LineItem, 0)
	for _, ri := range toSlice(rawItems) {
		im, ok := toMap(ri)
		if !ok {
			continue
		}
		items = append(items, normalizeLineItem(im))
	}

	order := Order{OrdenCompra: hdr, Productos: items}
	if e, ok := lookup(m, "error"); ok {
		if b, isBool := e.(bool); !isBool || b {
			order.Error = toString(e)
		}
	}
	return order
}

func normalizeLineItem(m map[string]any) LineItem {
	return LineItem{
		Nombre:     toString(first(m, "nombre")),
		IDSupabase: toIDPtr(first(m, "id_supabase", "id")),
		Talla:      toString(first(m, "talla", "tallas")),
		Cantidad:   toInt(first(m, "cantidad")),
		Materiales: toStringSlice(first(m, "materiales")),
	}
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := lookup(m, k); ok && v != nil {
			return v
		}
	}
	return nil
}

// Placeholder builds a schema-complete record whose identity is name and
// whose only other populated field is the description (or the order error).
func Placeholder(kind constants.DocumentKind, name, descripcion string) Record {
	if kind == constants.KindOrder {
		return Order{
			OrdenCompra: Header{NumeroOrden: name},
			Productos:   []LineItem{},
			Error:       descripcion,
		}
	}
	return Normalize(kind, map[string]any{"nombre": name, "descripcion": descripcion})
}

// UnrecognizedRecord is the final fallback for drafts of no known shape.
func UnrecognizedRecord(kind constants.DocumentKind) Record {
	return Placeholder(kind, Unrecognized, "")
}
