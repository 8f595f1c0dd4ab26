package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
)

func TestNormalize_FillsEveryField(t *testing.T) {
	for _, kind := range []constants.DocumentKind{constants.KindMaterial, constants.KindProduct, constants.KindTool} {
		t.Run(string(kind), func(t *testing.T) {
			rec := Normalize(kind, map[string]any{"descripcion": "algo"})
			m := rec.Map()
			require.Len(t, m, len(Fields(kind)))
			for _, f := range Fields(kind) {
				v, ok := m[f.Name]
				require.True(t, ok, "missing %s", f.Name)
				switch f.Type {
				case TypeNumeric:
					require.Equal(t, "0", v)
				case TypeBool:
					require.Equal(t, false, v)
				}
			}
			require.Equal(t, Sentinel(kind), rec.Identity())
		})
	}
}

func TestNormalize_IdentityNeverBlank(t *testing.T) {
	for _, in := range []map[string]any{nil, {}, {"nombre": "   "}, {"nombre": nil}, {"nombre": map[string]any{}}} {
		rec := Normalize(constants.KindMaterial, in)
		require.Equal(t, SentinelMaterial, rec.Identity())
	}
	rec := Normalize(constants.KindOrder, map[string]any{"ordenCompra": map[string]any{"numeroOrden": " "}})
	require.Equal(t, SentinelOrder, rec.Identity())
}

func TestNormalize_Coercions(t *testing.T) {
	rec := Normalize(constants.KindMaterial, map[string]any{
		"Nombre":            "Cuero Vacuno Premium",
		"precio":            "45,50 €",
		"stock":             50.0,
		"stock_minimo":      "10 metros",
		"categoria":         "cuero",
		"fechaAdquisicion":  "15/10/2023",
		"proveedor":         []any{"Curtidos", "SA"},
		"campo_desconocido": "x",
	}).(Material)

	require.Equal(t, "Cuero Vacuno Premium", rec.Nombre)
	require.Equal(t, "45.50", rec.Precio)
	require.Equal(t, "50", rec.Stock)
	require.Equal(t, "10", rec.StockMinimo)
	require.Equal(t, "Cuero", rec.Categoria)
	require.Equal(t, "2023-10-15", rec.FechaAdquisicion)
	require.Equal(t, "Curtidos, SA", rec.Proveedor)
	require.NotContains(t, rec.Map(), "campo_desconocido")
}

func TestNormalize_InvalidValuesFallBackToDefaults(t *testing.T) {
	rec := Normalize(constants.KindTool, map[string]any{
		"nombre":              "Máquina de coser",
		"estado":              "roto del todo",
		"ultimoMantenimiento": "ayer",
	}).(Tool)
	require.Equal(t, "", rec.Estado)
	require.Equal(t, "", rec.UltimoMantenimiento)

	p := Normalize(constants.KindProduct, map[string]any{"precio": "consultar", "destacado": "sí"}).(Product)
	require.Equal(t, "0", p.Precio)
	require.True(t, p.Destacado)

	m := Normalize(constants.KindMaterial, map[string]any{"nombre": "Cuero", "precio": "NaN", "stock": "Infinity"}).(Material)
	require.Equal(t, "0", m.Precio)
	require.Equal(t, "0", m.Stock)
	require.Equal(t, m, Normalize(constants.KindMaterial, m.Map()))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []map[string]any{
		{"nombre": "Suela de goma", "precio": "1.234,5", "categoria": "suelas", "fechaAdquisicion": "3 de marzo de 2024"},
		{"precio": "2.550.000", "stock": "-3"},
		{},
	}
	for _, kind := range []constants.DocumentKind{constants.KindMaterial, constants.KindProduct, constants.KindTool} {
		for _, in := range inputs {
			once := Normalize(kind, in)
			twice := Normalize(kind, once.Map())
			require.Equal(t, once, twice)
		}
	}

	order := Normalize(constants.KindOrder, map[string]any{
		"ordenCompra": map[string]any{"numeroOrden": "OC-1", "fecha": "01/02/2024", "total": "1.500"},
		"productos": []any{
			map[string]any{"nombre": "Bota", "id_supabase": "42", "talla": 38, "cantidad": "5", "materiales": []any{"Cuero"}},
		},
	})
	require.Equal(t, order, Normalize(constants.KindOrder, order.Map()))
}

func TestNormalizeOrder(t *testing.T) {
	order := Normalize(constants.KindOrder, map[string]any{
		"numeroOrden": "OC-77",
		"cliente":     "Calzados Lex",
		"total":       1250.5,
		"productos": []any{
			map[string]any{"nombre": "Zapato X", "id_supabase": 42, "talla": "38", "cantidad": 5},
			map[string]any{"nombre": "Sin id", "id_supabase": nil, "talla": "40", "cantidad": 1},
			"basura",
		},
	}).(Order)

	require.Equal(t, "OC-77", order.OrdenCompra.NumeroOrden)
	require.Equal(t, "Calzados Lex", order.OrdenCompra.Cliente)
	require.InDelta(t, 1250.5, order.OrdenCompra.Total, 1e-9)
	require.Len(t, order.Productos, 2)
	require.Equal(t, int64(42), order.Productos[0].ID())
	require.NotNil(t, order.Productos[0].Materiales)
	require.Nil(t, order.Productos[1].IDSupabase)

	raw, err := json.Marshal(order.Map())
	require.NoError(t, err)
	require.Contains(t, string(raw), `"id_supabase":null`)
	require.Contains(t, string(raw), `"materiales":[]`)
}

func TestPlaceholder(t *testing.T) {
	rec := Placeholder(constants.KindMaterial, InsufficientData, "corto")
	require.Equal(t, InsufficientData, rec.Identity())
	require.Equal(t, "corto", rec.Map()["descripcion"])
	require.Equal(t, "0", rec.Map()["precio"])

	o := UnrecognizedRecord(constants.KindOrder).(Order)
	require.Equal(t, Unrecognized, o.Identity())
	require.NotNil(t, o.Productos)
}

func TestCleanNumeric(t *testing.T) {
	cases := map[string]string{
		"45,50 €":   "45.50",
		"1.234,5":   "1234.5",
		"1,234.5":   "1234.5",
		"2.550.000": "2550000",
		"1.500":     "1500",
		"$ 12":      "12",
		"-3":        "-3",
	}
	for in, want := range cases {
		got, ok := cleanNumeric(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}
	_, ok := cleanNumeric("sin precio")
	require.False(t, ok)
}
