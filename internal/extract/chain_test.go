package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr/mistral"
)

type fakeExtractor struct {
	name  string
	res   ocr.DocumentText
	err   error
	calls int
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(context.Context, Request) (ocr.DocumentText, error) {
	f.calls++
	return f.res, f.err
}

func TestChainFirstSuccessWins(t *testing.T) {
	hosted := &fakeExtractor{name: "hosted", err: ErrUnsupported}
	broken := &fakeExtractor{name: "broken", err: common.NewAppError(common.CodeRecognizerUnavailable, "down", nil)}
	local := &fakeExtractor{name: "local", res: ocr.DocumentText{Text: "Cuero Vacuno Premium", Source: constants.SourceRawOCR}}
	never := &fakeExtractor{name: "never"}

	c := NewChain(nil, hosted, broken, local, never)
	res, err := c.Extract(context.Background(), Request{Path: "a.pdf", Kind: constants.KindMaterial})
	require.NoError(t, err)
	require.Equal(t, "Cuero Vacuno Premium", res.Text)
	require.Equal(t, 0, never.calls)
}

func TestChainReturnsLastFailure(t *testing.T) {
	a := &fakeExtractor{name: "a", err: common.NewAppError(common.CodeRecognizerUnavailable, "down", nil)}
	b := &fakeExtractor{name: "b", res: ocr.DocumentText{Text: "abc"}, err: common.NewAppError(common.CodeNoTextExtracted, "short", nil)}

	res, err := NewChain(nil, a, b).Extract(context.Background(), Request{})
	require.Equal(t, common.CodeNoTextExtracted, common.CodeOf(err))
	require.Equal(t, "abc", res.Text)
}

func TestChainAllUnsupported(t *testing.T) {
	a := &fakeExtractor{name: "a", err: ErrUnsupported}
	_, err := NewChain(nil, a).Extract(context.Background(), Request{})
	require.True(t, errors.Is(err, common.ErrUnsupportedFormat))
}

func TestHostedAdapterOrdersOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(mistral.Response{Pages: []mistral.Page{
			{Index: 0, Markdown: "ORDEN DE COMPRA OC-2023-001"},
			{Index: 1, Markdown: "Zapato X (ID 42) talla 38 39 40 x 5"},
		}})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "orden.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	client, err := mistral.New(mistral.WithURL(srv.URL), mistral.WithToken("k"))
	require.NoError(t, err)
	a := NewHostedAdapter(client, 0, nil, constants.KindOrder)

	_, err = a.Extract(context.Background(), Request{Path: path, Kind: constants.KindMaterial})
	require.ErrorIs(t, err, ErrUnsupported)

	res, err := a.Extract(context.Background(), Request{Path: path, Kind: constants.KindOrder, Lang: "spa"})
	require.NoError(t, err)
	require.Equal(t, constants.SourceHostedOCR, res.Source)
	require.Equal(t, constants.PDF, res.Format)
	require.Equal(t, "--- Page 1 ---\nORDEN DE COMPRA OC-2023-001\n--- Page 2 ---\nZapato X (ID 42) talla 38 39 40 x 5", res.Text)
}

func TestHostedAdapterFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "orden.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o600))

	client, err := mistral.New(mistral.WithURL(srv.URL), mistral.WithToken("k"))
	require.NoError(t, err)

	_, err = NewHostedAdapter(client, 0, nil).Extract(context.Background(), Request{Path: path, Kind: constants.KindOrder})
	require.Equal(t, common.CodeRecognizerUnavailable, common.CodeOf(err))
}
