package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

type call struct{ system, prompt string }

// scripted replies in order; an error entry fails that call
type scripted struct {
	name    string
	replies []any
	mu      sync.Mutex
	calls   []call
}

func (s *scripted) Name() string { return s.name }

func (s *scripted) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{system, prompt})
	if len(s.replies) == 0 {
		return "", errors.New("no more replies")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	switch v := r.(type) {
	case error:
		return "", v
	case func(context.Context) (string, error):
		return v(ctx)
	default:
		return v.(string), nil
	}
}

func TestExtract_MaterialStructured(t *testing.T) {
	c := &scripted{name: "fake", replies: []any{
		`{"nombre":"Cuero"}`,
		"```json\n{\"nombre\":\"Cuero Vacuno\",\"precio\":45.5,\"stock_minimo\":\"10\",\"extra\":1}\n```",
	}}
	d := NewExtractor(c, Config{}, nil).Extract(context.Background(), Request{Kind: constants.KindMaterial, Text: "50 metros de Cuero Vacuno"})

	require.Equal(t, DraftStructured, d.Kind)
	require.Equal(t, "Cuero Vacuno", d.Structured["nombre"])
	require.Equal(t, "45.5", d.Structured["precio"])
	require.Equal(t, "10", d.Structured["stockMinimo"])
	require.NotContains(t, d.Structured, "extra")
	require.True(t, d.SchemaValid)
	require.Equal(t, "fake", d.Provider)

	require.Len(t, c.calls, 2)
	require.Contains(t, c.calls[0].system, "extraction agent")
	require.Contains(t, c.calls[0].prompt, "50 metros de Cuero Vacuno")
	require.Contains(t, c.calls[1].system, "formatting specialist")
	require.Contains(t, c.calls[1].prompt, `{"nombre":"Cuero"}`)
	require.Contains(t, c.calls[1].prompt, "50 metros de Cuero Vacuno")
}

func TestExtract_OrderRunsComparisonWithCatalog(t *testing.T) {
	order := `{"ordenCompra":{"numeroOrden":"OC-1","fecha":"2023-12-05","cliente":"X","total":10},"productos":[]}`
	c := &scripted{name: "fake", replies: []any{order, order, order}}
	snap := catalog.NewSnapshot([]catalog.Record{{ID: 42, Nombre: "Zapato X", Materiales: []string{"Cuero"}}})

	d := NewExtractor(c, Config{}, nil).Extract(context.Background(), Request{Kind: constants.KindOrder, Text: "orden", Catalog: snap})
	require.Equal(t, DraftStructured, d.Kind)
	require.True(t, d.SchemaValid)
	require.Len(t, c.calls, 3)
	require.Contains(t, c.calls[2].system, "comparison specialist")
	require.Contains(t, c.calls[2].prompt, `"Zapato X"`)
}

func TestExtract_ProseBecomesRawText(t *testing.T) {
	prose := `Claro, aquí tienes: {"nombre": "Suela", } espero que ayude`
	c := &scripted{name: "fake", replies: []any{"{}", prose}}
	d := NewExtractor(c, Config{}, nil).Extract(context.Background(), Request{Kind: constants.KindMaterial, Text: "texto largo suficiente"})
	require.Equal(t, DraftRawText, d.Kind)
	require.Equal(t, prose, d.Raw)
}

func TestExtract_FailuresAreExtractionFailed(t *testing.T) {
	c := &scripted{name: "fake", replies: []any{errors.New("503")}}
	d := NewExtractor(c, Config{}, nil).Extract(context.Background(), Request{Kind: constants.KindTool, Text: "texto"})
	require.Equal(t, DraftFailed, d.Kind)
	require.Equal(t, common.CodeExtractionFailed, common.CodeOf(d.Err))

	d = NewExtractor(nil, Config{}, nil).Extract(context.Background(), Request{Kind: constants.KindTool, Text: "texto"})
	require.Equal(t, DraftFailed, d.Kind)
	require.ErrorIs(t, d.Err, ErrUnavailable)

	empty := &scripted{name: "fake", replies: []any{"   "}}
	d = NewExtractor(empty, Config{}, nil).Extract(context.Background(), Request{Kind: constants.KindTool, Text: "texto"})
	require.Equal(t, DraftFailed, d.Kind)
}

func TestExtract_RoleTimeoutDegrades(t *testing.T) {
	slow := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	c := &scripted{name: "slow", replies: []any{slow}}
	d := NewExtractor(c, Config{RoleTimeout: 20 * time.Millisecond}, nil).Extract(context.Background(), Request{Kind: constants.KindMaterial, Text: "texto"})
	require.Equal(t, DraftFailed, d.Kind)
	require.ErrorIs(t, d.Err, context.DeadlineExceeded)
}

func TestExtract_PanicIsContained(t *testing.T) {
	boom := func(context.Context) (string, error) { panic("kaboom") }
	c := &scripted{name: "p", replies: []any{boom}}
	d := NewExtractor(c, Config{}, nil).Extract(context.Background(), Request{Kind: constants.KindMaterial, Text: "texto"})
	require.Equal(t, DraftFailed, d.Kind)
	require.Contains(t, d.Reason, "kaboom")
}

func TestChain(t *testing.T) {
	bad := &scripted{name: "deepseek", replies: []any{errors.New("down")}}
	good := &scripted{name: "ollama", replies: []any{"{}"}}
	ch := NewChain(nil, bad, good)
	require.Equal(t, "deepseek>ollama", ch.Name())

	out, err := ch.Complete(context.Background(), "s", "p")
	require.NoError(t, err)
	require.Equal(t, "{}", out)

	_, err = NewChain(nil).Complete(context.Background(), "s", "p")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = NewChain(nil, &scripted{name: "a", replies: []any{errors.New("x")}}).Complete(context.Background(), "s", "p")
	require.ErrorContains(t, err, "a: x")
}

func TestLimited(t *testing.T) {
	c := &scripted{name: "x", replies: []any{"{}", "{}"}}
	require.Same(t, Completer(c), NewLimited(c, 0))

	l := NewLimited(c, 1)
	require.Equal(t, "x", l.Name())
	_, err := l.Complete(context.Background(), "s", "p")
	require.NoError(t, err)

	// the bucket is empty for the next minute
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Complete(ctx, "s", "p")
	require.Error(t, err)
}

func TestNormalizeAndSanitizeJSON_Order(t *testing.T) {
	raw := []byte(`{"numeroOrden":"OC-9","total":"1500","productos":[{"nombre":" Bota ","id":"7","talla":38,"cantidad":"2","materiales":null},"x"],"nota":"y"}`)
	out, changed, err := NormalizeAndSanitizeJSON(constants.KindOrder, raw, nil)
	require.NoError(t, err)
	require.NotEmpty(t, changed)
	require.NoError(t, ValidateJSONAgainstSchema(BuildSchema(constants.KindOrder), out))

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	hdr := m["ordenCompra"].(map[string]any)
	require.Equal(t, "OC-9", hdr["numeroOrden"])
	require.Equal(t, 1500.0, hdr["total"])
	item := m["productos"].([]any)[0].(map[string]any)
	require.Equal(t, 7.0, item["id_supabase"])
	require.Equal(t, "38", item["talla"])
	require.Equal(t, 2.0, item["cantidad"])
	require.Equal(t, []any{}, item["materiales"])
	require.NotContains(t, m, "nota")
}

func TestBuildSchema_RejectsOffEnum(t *testing.T) {
	schema := BuildSchema(constants.KindTool)
	ok := `{"nombre":"a","modelo":"","numeroSerie":"","estado":"Bueno","fechaAdquisicion":"","ultimoMantenimiento":"2024-01-02","proximoMantenimiento":"","ubicacion":"","responsable":"","descripcion":""}`
	require.NoError(t, ValidateJSONAgainstSchema(schema, []byte(ok)))
	bad := strings.Replace(ok, `"Bueno"`, `"Roto"`, 1)
	require.Error(t, ValidateJSONAgainstSchema(schema, []byte(bad)))
}

func TestStripCodeFencesAndDecode(t *testing.T) {
	require.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	m, ok := DecodeObject("```\n{\"a\":1}\n```")
	require.True(t, ok)
	require.Equal(t, 1.0, m["a"])
	_, ok = DecodeObject(`texto {"a":1}`)
	require.False(t, ok)
}

func TestDraftValue(t *testing.T) {
	require.Equal(t, "hola", RawText("hola").Value())
	require.Equal(t, map[string]any{}, Structured(nil).Value())
	v := Failed("x", nil).Value().(map[string]any)
	require.Equal(t, common.CodeExtractionFailed, v["error"])
}
