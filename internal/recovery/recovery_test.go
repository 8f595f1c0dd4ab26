package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

func newRecoverer() *Recoverer {
	snap := catalog.NewSnapshot([]catalog.Record{{ID: 42, Nombre: "Zapato X", Materiales: []string{"Cuero", "Suela"}}})
	return New(snap, nil)
}

func TestRecoverValue_Strategies(t *testing.T) {
	r := newRecoverer()
	ctx := context.Background()

	tests := []struct {
		name     string
		in       any
		strategy Strategy
		nombre   string
	}{
		{"mapping", map[string]any{"nombre": "Cuero"}, StrategyStructured, "Cuero"},
		{"prose around json", `Aquí está: {"nombre": "Hilo"} saludos`, StrategyJSONSpan, "Hilo"},
		{"trailing comma", "```json\n{\"nombre\": \"Suela\",}\n```", StrategyRepairedSpan, "Suela"},
		{"missing comma", "{\"nombre\": \"Hebilla\"\n\"precio\": \"3\"}", StrategyRepairedSpan, "Hebilla"},
		{"no json", "Material: Cuero vacuno\nPrecio: 10", StrategyHeuristic, "Material: Cuero vacuno"},
		{"number", 42, StrategyUnrecognized, record.Unrecognized},
		{"nil", nil, StrategyUnrecognized, record.Unrecognized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := r.RecoverValue(ctx, constants.KindMaterial, tc.in, "")
			require.Equal(t, tc.strategy, out.Strategy)
			require.NotNil(t, out.Value)
			require.Equal(t, tc.nombre, out.Value["nombre"])
		})
	}
}

func TestRecover_FailedDraftUsesHeuristic(t *testing.T) {
	r := newRecoverer()
	text := "Martillo de zapatero\nModelo: MZ-200\nEstado: Bueno"
	out := r.Recover(context.Background(), constants.KindTool, llm.Failed("timeout", errors.New("deadline")), text)
	require.Equal(t, StrategyHeuristic, out.Strategy)
	require.Equal(t, "Martillo de zapatero", out.Value["nombre"])
	require.Equal(t, "MZ-200", out.Value["modelo"])
}

func TestRecover_OrderHeuristicFromModelText(t *testing.T) {
	r := newRecoverer()
	model := "No pude generar JSON. Productos:\nZapato X (ID 42) talla 38 39 x 2"
	text := "Orden de compra OC-77\nCliente: Calzados Sur\nZapato X (ID 42) talla 38 39 x 2"

	out := r.Recover(context.Background(), constants.KindOrder, llm.RawText(model), text)
	require.Equal(t, StrategyHeuristic, out.Strategy)

	hdr := out.Value["ordenCompra"].(map[string]any)
	require.Equal(t, "OC-77", hdr["numeroOrden"])
	items := out.Value["productos"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	require.Equal(t, []string{"Cuero", "Suela"}, first["materiales"])
	require.Equal(t, 2, first["cantidad"])
}

func TestRecover_StructuredDraft(t *testing.T) {
	out := newRecoverer().Recover(context.Background(), constants.KindProduct, llm.Structured(map[string]any{"nombre": "Bota"}), "")
	require.Equal(t, StrategyStructured, out.Strategy)
	require.Equal(t, "Bota", out.Value["nombre"])
}

func TestSpanAndRepair(t *testing.T) {
	_, ok := Span("sin llaves")
	require.False(t, ok)
	s, ok := Span("x {\"a\":{\"b\":1}} y")
	require.True(t, ok)
	require.Equal(t, `{"a":{"b":1}}`, s)

	require.Equal(t, `{"a":[1,2]}`, Repair(`{"a":[1,2,]}`))
	require.Equal(t, `{"a":"x"}`, Repair(`{“a”:“x”}`))
}
