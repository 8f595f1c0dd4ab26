package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/metrics"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/pipeline"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/recovery"
)

type call struct {
	method  string
	kind    constants.DocumentKind
	text    string
	path    string
	lang    string
	content string
	rid     string
}

type fakeProcessor struct {
	mu      sync.Mutex
	calls   []call
	fileErr error
}

func (f *fakeProcessor) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeProcessor) last(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func result(kind constants.DocumentKind, rid string) pipeline.Result {
	var rec record.Record
	if kind == constants.KindOrder {
		rec = record.Order{
			OrdenCompra: record.Header{NumeroOrden: "OC-9", Cliente: "Ruiz"},
			Productos:   []record.LineItem{{Nombre: "Bota", Talla: "40", Cantidad: 2, Materiales: []string{}}},
		}
	} else {
		rec = record.Placeholder(kind, "Cuero napa", "")
	}
	return pipeline.Result{
		Kind: kind, Record: rec, Payload: rec.Map(), RequestID: rid,
		Strategy: recovery.StrategyStructured, TextSource: constants.SourceInputText,
	}
}

func (f *fakeProcessor) ProcessFile(ctx context.Context, kind constants.DocumentKind, path, lang string) (pipeline.Result, error) {
	b, _ := os.ReadFile(path)
	rid := common.RequestIDFromContext(ctx)
	f.record(call{method: "file", kind: kind, path: path, lang: lang, content: string(b), rid: rid})
	if f.fileErr != nil {
		return pipeline.Result{}, f.fileErr
	}
	res := result(kind, rid)
	res.TextSource = constants.SourceEmbeddedText
	return res, nil
}

func (f *fakeProcessor) ProcessText(ctx context.Context, kind constants.DocumentKind, text string) pipeline.Result {
	rid := common.RequestIDFromContext(ctx)
	f.record(call{method: "text", kind: kind, text: text, rid: rid})
	return result(kind, rid)
}

func (f *fakeProcessor) RawFile(ctx context.Context, kind constants.DocumentKind, path, lang string) (pipeline.Result, error) {
	f.record(call{method: "rawfile", kind: kind, path: path, lang: lang})
	return pipeline.Result{Kind: kind, Raw: "raw model text"}, nil
}

func (f *fakeProcessor) RawText(ctx context.Context, kind constants.DocumentKind, text string) pipeline.Result {
	f.record(call{method: "rawtext", kind: kind, text: text})
	return pipeline.Result{Kind: kind, Raw: "raw model text"}
}

type fakeCatalog struct {
	res catalog.Result
	err error
}

func (c fakeCatalog) Name() string { return "fake" }
func (c fakeCatalog) Fetch(context.Context) (catalog.Result, error) {
	return c.res, c.err
}

func newTestServer(t *testing.T, proc *fakeProcessor, src catalog.Source) *httptest.Server {
	t.Helper()
	metrics.Register()
	s := New(proc, src, nil, WithTempDir(t.TempDir()))
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestExtract_JSONText(t *testing.T) {
	proc := &fakeProcessor{}
	ts := newTestServer(t, proc, nil)

	body := `{"text":"Cuero napa negro, 20 metros"}`
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/extract/materiales", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "rid-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "rid-123", resp.Header.Get("X-Request-ID"))
	require.Equal(t, "structured", resp.Header.Get("X-Recovery-Strategy"))

	m := decode(t, resp)
	require.Equal(t, "Cuero napa", m["nombre"])

	c := proc.last(t)
	require.Equal(t, "text", c.method)
	require.Equal(t, constants.KindMaterial, c.kind)
	require.Equal(t, "Cuero napa negro, 20 metros", c.text)
	require.Equal(t, "rid-123", c.rid)
}

func TestExtract_FormRaw(t *testing.T) {
	proc := &fakeProcessor{}
	ts := newTestServer(t, proc, nil)

	resp, err := http.PostForm(ts.URL+"/v1/extract/herramienta", map[string][]string{
		"text": {"Taladro Bosch"},
		"raw":  {"true"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	require.Equal(t, "raw model text", raw)
	require.Equal(t, "rawtext", proc.last(t).method)
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestExtract_MultipartFile(t *testing.T) {
	proc := &fakeProcessor{}
	ts := newTestServer(t, proc, nil)

	body, ct := multipartBody(t, "orden.PDF", "%PDF-1.4 fake", map[string]string{"lang": "spa+eng"})
	resp, err := http.Post(ts.URL+"/v1/extract/orden", ct, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, string(constants.SourceEmbeddedText), resp.Header.Get("X-Text-Source"))

	m := decode(t, resp)
	hdr := m["ordenCompra"].(map[string]any)
	require.Equal(t, "OC-9", hdr["numeroOrden"])

	c := proc.last(t)
	require.Equal(t, "file", c.method)
	require.Equal(t, constants.KindOrder, c.kind)
	require.Equal(t, ".pdf", filepath.Ext(c.path))
	require.Equal(t, "%PDF-1.4 fake", c.content)
	require.Equal(t, "spa+eng", c.lang)

	// the spooled upload is gone once the response is written
	_, err = os.Stat(c.path)
	require.True(t, os.IsNotExist(err))
}

func TestExtract_OrderXLSX(t *testing.T) {
	proc := &fakeProcessor{}
	ts := newTestServer(t, proc, nil)

	resp, err := http.PostForm(ts.URL+"/v1/extract/orden?format=xlsx", map[string][]string{"text": {"Orden OC-9"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Orden", "B1")
	require.NoError(t, err)
	require.Equal(t, "OC-9", v)
}

func TestExtract_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		do   func(url string) (*http.Response, error)
	}{
		{"unknown kind", func(url string) (*http.Response, error) {
			return http.PostForm(url+"/v1/extract/zapato", map[string][]string{"text": {"x"}})
		}},
		{"no input", func(url string) (*http.Response, error) {
			return http.Post(url+"/v1/extract/material", "application/json", strings.NewReader(`{"text":"  "}`))
		}},
		{"bad json", func(url string) (*http.Response, error) {
			return http.Post(url+"/v1/extract/material", "application/json", strings.NewReader(`{"text":`))
		}},
		{"bad lang", func(url string) (*http.Response, error) {
			return http.Post(url+"/v1/extract/material", "application/json", strings.NewReader(`{"text":"Cuero vacuno negro","lang":"spa; rm -rf"}`))
		}},
		{"text too long", func(url string) (*http.Response, error) {
			return http.PostForm(url+"/v1/extract/material", map[string][]string{"text": {strings.Repeat("a", maxTextLen+1)}})
		}},
		{"unsupported upload", func(url string) (*http.Response, error) {
			body, ct := multipartBody(t, "notas.docx", "x", nil)
			return http.Post(url+"/v1/extract/material", ct, body)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc := &fakeProcessor{}
			ts := newTestServer(t, proc, nil)
			resp, err := tc.do(ts.URL)
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			m := decode(t, resp)
			e := m["error"].(map[string]any)
			require.Equal(t, common.CodeInvalidInput, e["code"])
			require.NotEmpty(t, e["message"])
			require.Empty(t, proc.calls)
		})
	}
}

func TestExtract_ProcessorRejectsFile(t *testing.T) {
	proc := &fakeProcessor{fileErr: common.InvalidInputError("El archivo no existe: x.pdf")}
	ts := newTestServer(t, proc, nil)

	body, ct := multipartBody(t, "x.pdf", "data", nil)
	resp, err := http.Post(ts.URL+"/v1/extract/material", ct, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decode(t, resp)["error"].(map[string]any)
	require.Equal(t, "El archivo no existe: x.pdf", e["message"])
}

func TestCatalog(t *testing.T) {
	src := fakeCatalog{res: catalog.Result{
		Success: true,
		Records: []catalog.Record{{ID: 42, Nombre: "Zapato X", Materiales: []string{"Cuero"}}},
		Total:   1,
	}}
	ts := newTestServer(t, &fakeProcessor{}, src)

	resp, err := http.Get(ts.URL + "/v1/catalog")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode(t, resp)
	require.Equal(t, true, m["success"])
	require.EqualValues(t, 1, m["total"])
	items := m["productos"].([]any)
	require.Equal(t, "Zapato X", items[0].(map[string]any)["nombre"])
}

func TestCatalog_Failure(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, fakeCatalog{err: io.ErrUnexpectedEOF})

	resp, err := http.Get(ts.URL + "/v1/catalog")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode(t, resp)
	require.Equal(t, "Error al obtener productos", m["error"])
	require.Equal(t, io.ErrUnexpectedEOF.Error(), m["detalles"])
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, "ok", decode(t, resp)["status"])

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), `zapateria_http_requests_total{method="GET",path="/healthz",status="200"}`)
}
