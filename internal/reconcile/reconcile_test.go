package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

func snapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Record{
		{ID: 42, Nombre: "Zapato X", Materiales: []string{"Cuero", "Suela"}},
		{ID: 7, Nombre: "Bota Alta", Materiales: []string{"Gamuza"}},
	})
}

func TestReconcile_ModelLinesExpanded(t *testing.T) {
	draft := map[string]any{
		"ordenCompra": map[string]any{"numeroOrden": "OC-1", "fecha": "2023-12-05", "cliente": "Sur", "total": 100.0},
		"productos": []any{
			map[string]any{"nombre": "Zapato X", "id_supabase": 42.0, "tallas": []any{"38", "39", 40.0}, "cantidad": 5.0, "materiales": []any{"Plastico"}},
			map[string]any{"nombre": "Bota Alta", "talla": "36, 37", "cantidad": 2.0},
			map[string]any{"nombre": "Desconocido", "id_supabase": 999.0, "talla": "41", "cantidad": 1.0, "materiales": []any{"X"}},
		},
	}
	order, step := New(nil).Reconcile(context.Background(), Input{Draft: draft, FromModel: true, Catalog: snapshot()})
	require.Equal(t, StepModel, step)
	require.Equal(t, "OC-1", order.OrdenCompra.NumeroOrden)
	require.Empty(t, order.Error)
	require.Len(t, order.Productos, 6)

	for _, it := range order.Productos[:3] {
		require.Equal(t, int64(42), it.ID())
		require.Equal(t, 5, it.Cantidad)
		require.Equal(t, []string{"Cuero", "Suela"}, it.Materiales)
	}
	require.Equal(t, []string{"38", "39", "40"}, []string{order.Productos[0].Talla, order.Productos[1].Talla, order.Productos[2].Talla})

	// matched by name
	require.Equal(t, int64(7), order.Productos[3].ID())
	require.Equal(t, "36", order.Productos[3].Talla)
	require.Equal(t, []string{"Gamuza"}, order.Productos[4].Materiales)

	// unknown id keeps its id and loses the unverified materials
	require.Equal(t, int64(999), order.Productos[5].ID())
	require.Equal(t, []string{}, order.Productos[5].Materiales)
}

func TestReconcile_PerSizeQuantities(t *testing.T) {
	draft := map[string]any{
		"ordenCompra": map[string]any{"numeroOrden": "OC-2"},
		"productos": []any{
			map[string]any{"nombre": "Zapato X", "id_supabase": 42.0, "tallas": map[string]any{"39": 3.0, "38": 1.0}},
		},
	}
	order, _ := New(nil).Reconcile(context.Background(), Input{Draft: draft, FromModel: true, Catalog: snapshot()})
	require.Len(t, order.Productos, 2)
	require.Equal(t, "38", order.Productos[0].Talla)
	require.Equal(t, 1, order.Productos[0].Cantidad)
	require.Equal(t, "39", order.Productos[1].Talla)
	require.Equal(t, 3, order.Productos[1].Cantidad)
}

func TestReconcile_EmptyModelFallsBackToHeuristic(t *testing.T) {
	draft := map[string]any{
		"ordenCompra": map[string]any{"numeroOrden": "OC-3", "cliente": "Norte"},
		"productos":   []any{},
	}
	text := "Orden OC-3\nZapato X (ID 42) talla 38 39 x 2"
	order, step := New(nil).Reconcile(context.Background(), Input{Draft: draft, FromModel: true, Text: text, Catalog: snapshot()})
	require.Equal(t, StepHeuristic, step)
	require.Equal(t, "Norte", order.OrdenCompra.Cliente)
	require.Empty(t, order.Error)
	require.Len(t, order.Productos, 2)
	require.Equal(t, 2, order.Productos[1].Cantidad)
	require.Equal(t, []string{"Cuero", "Suela"}, order.Productos[1].Materiales)
}

func TestReconcile_RecoveredByHeuristicIsMarked(t *testing.T) {
	text := "Orden de compra OC-4\nBota Alta (1D 7) 36 x 1"
	draft := map[string]any{"ordenCompra": map[string]any{}, "productos": []any{}}
	order, step := New(nil).Reconcile(context.Background(), Input{Draft: draft, FromModel: false, Text: text, Catalog: snapshot()})
	require.Equal(t, StepHeuristic, step)
	require.Equal(t, ErrNotJSON, order.Error)
	require.Equal(t, "OC-4", order.OrdenCompra.NumeroOrden)
	require.Len(t, order.Productos, 1)
	require.Equal(t, []string{"Gamuza"}, order.Productos[0].Materiales)
}

func TestReconcile_ModelFailureIsMarked(t *testing.T) {
	text := "Orden de compra OC-4\nBota Alta (1D 7) 36 x 1"
	draft := map[string]any{"ordenCompra": map[string]any{}, "productos": []any{}}
	order, step := New(nil).Reconcile(context.Background(), Input{Draft: draft, ModelFailed: true, Text: text, Catalog: snapshot()})
	require.Equal(t, StepHeuristic, step)
	require.Equal(t, ErrModelUnavailable, order.Error)
	require.Len(t, order.Productos, 1)
}

func TestReconcile_NothingFoundIsErrorRecord(t *testing.T) {
	text := "Pedido 1234\nCliente: Calzados Sur\nsin productos legibles"
	order, step := New(nil).Reconcile(context.Background(), Input{Text: text, Catalog: catalog.Empty()})
	require.Equal(t, StepError, step)
	require.Equal(t, ErrNoLineItems, order.Error)
	require.Equal(t, "1234", order.OrdenCompra.NumeroOrden)
	require.Equal(t, "Calzados Sur", order.OrdenCompra.Cliente)
	require.NotNil(t, order.Productos)
	require.Empty(t, order.Productos)
}

func TestReconcile_NilCatalogAndEmptyInput(t *testing.T) {
	order, step := New(nil).Reconcile(context.Background(), Input{})
	require.Equal(t, StepError, step)
	require.Equal(t, record.SentinelOrder, order.OrdenCompra.NumeroOrden)
	require.Equal(t, []record.LineItem{}, order.Productos)
}

func TestExpandSizes_KeepsNonSizeText(t *testing.T) {
	out := ExpandSizes([]any{
		map[string]any{"nombre": "a", "talla": "No especificado"},
		map[string]any{"nombre": "b", "talla": "38/39"},
		"basura",
	})
	require.Len(t, out, 3)
	require.Equal(t, "No especificado", out[0].(map[string]any)["talla"])
	require.Equal(t, "38", out[1].(map[string]any)["talla"])
	require.Equal(t, "39", out[2].(map[string]any)["talla"])
}
