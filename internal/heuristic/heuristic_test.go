package heuristic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

type fakeLookup map[int64][]string

func (f fakeLookup) Materials(id int64) []string {
	if m, ok := f[id]; ok {
		return append([]string{}, m...)
	}
	return []string{}
}

const materialText = `50 metros de Cuero Vacuno Premium
Referencia: CV-2023-456
Stock mínimo: 10
Stock: 50
Precio por metro: 45.50€
Categoría: Cuero
Proveedor: Curtidos del Valle`

func TestFlat_Material(t *testing.T) {
	m := Flat(constants.KindMaterial, materialText)

	require.Equal(t, "50 metros de Cuero Vacuno Premium", m["nombre"])
	require.Equal(t, "CV-2023-456", m["referencia"])
	require.Equal(t, "50", m["stock"])
	require.Equal(t, "10", m["stockMinimo"])
	require.Equal(t, "45.50€", m["precio"])
	require.Equal(t, "Cuero", m["categoria"])
	require.Equal(t, "Curtidos del Valle", m["proveedor"])
	require.LessOrEqual(t, len([]rune(m["descripcion"].(string))), 200)

	rec := record.Normalize(constants.KindMaterial, m).(record.Material)
	require.Equal(t, "45.50", rec.Precio)
	require.Equal(t, "Cuero", rec.Categoria)
}

func TestFlat_Defaults(t *testing.T) {
	m := Flat(constants.KindProduct, "")
	require.Equal(t, record.SentinelProduct, m["nombre"])
	require.Equal(t, record.NoDescription, m["descripcion"])
	require.Equal(t, "0", m["precio"])
	require.Equal(t, false, m["destacado"])
	require.Len(t, m, len(record.Fields(constants.KindProduct)))

	long := strings.Repeat("palabra ", 100)
	m = Flat(constants.KindTool, long)
	require.Equal(t, record.SentinelTool, m["nombre"])
	require.Len(t, []rune(m["descripcion"].(string)), 200)
}

func TestFirstNameLine_SkipsMarkers(t *testing.T) {
	require.Equal(t, "Máquina troqueladora", FirstNameLine("\n--- Page 1 ---\nab\nMáquina troqueladora\n"))
	require.Equal(t, "", FirstNameLine("x\n"+strings.Repeat("a", 60)))
}

func TestOrderLines_ExpandsSizes(t *testing.T) {
	lines := OrderLines("Zapato X (ID 42) talla 38 39 40 x 5", fakeLookup{})
	require.Len(t, lines, 3)
	for i, talla := range []string{"38", "39", "40"} {
		require.Equal(t, talla, lines[i]["talla"])
		require.Equal(t, int64(42), lines[i]["id_supabase"])
		require.Equal(t, 5, lines[i]["cantidad"])
		require.Equal(t, []string{}, lines[i]["materiales"])
		require.Equal(t, "Zapato X", lines[i]["nombre"])
	}
}

func TestOrderLines_Variants(t *testing.T) {
	text := `ORDEN DE COMPRA
1. Bota Texana (1D 7) tallas 41, 42 cantidad: 3
- Sandalia (ID 9)
Sin marcador 38 39 x 2`
	lines := OrderLines(text, fakeLookup{7: {"Cuero", "Suela"}})
	require.Len(t, lines, 3)

	require.Equal(t, "Bota Texana", lines[0]["nombre"])
	require.Equal(t, int64(7), lines[0]["id_supabase"])
	require.Equal(t, 3, lines[0]["cantidad"])
	require.Equal(t, []string{"Cuero", "Suela"}, lines[0]["materiales"])
	require.Equal(t, "42", lines[1]["talla"])

	require.Equal(t, record.UnspecifiedSize, lines[2]["talla"])
	require.Equal(t, 1, lines[2]["cantidad"])
	require.Equal(t, "Sandalia", lines[2]["nombre"])
}

func TestOrderHeader(t *testing.T) {
	text := `ORDEN DE COMPRA No. OC-2023-001
Fecha: 05/12/2023
Cliente: Deportes Urbanos SAS
Zapato X (ID 42) talla 38 x 5   Total línea: 100
Total: $2.550.000`
	hdr := OrderHeader(text)
	require.Equal(t, "OC-2023-001", hdr["numeroOrden"])
	require.Equal(t, "05/12/2023", hdr["fecha"])
	require.Equal(t, "Deportes Urbanos SAS", hdr["cliente"])
	require.Equal(t, "$2.550.000", hdr["total"])

	order := record.Normalize(constants.KindOrder, Order(text, nil)).(record.Order)
	require.Equal(t, "2023-12-05", order.OrdenCompra.Fecha)
	require.InDelta(t, 2550000, order.OrdenCompra.Total, 1e-6)
	require.Len(t, order.Productos, 1)
}

func TestOrder_NoLines(t *testing.T) {
	m := Order("nada útil aquí", nil)
	require.Empty(t, m["productos"])
	hdr := m["ordenCompra"].(map[string]any)
	require.Equal(t, "", hdr["numeroOrden"])
}
