package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/pipeline"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/recovery"
)

func offlineConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.LoadConfig()
	cfg.OCR.Tesseract = filepath.Join(t.TempDir(), "no-tesseract")
	cfg.OCR.MistralAPIKey = ""
	cfg.LLM.Providers = nil
	cfg.Catalog = common.CatalogConfig{Limit: 100}
	return cfg
}

func TestBuild_Offline(t *testing.T) {
	a, err := Build(context.Background(), offlineConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	res := a.Processor.ProcessText(context.Background(), constants.KindTool,
		"Martillo de zapatero\nModelo: MZ-200\nEstado: bueno")
	require.Equal(t, recovery.StrategyHeuristic, res.Strategy)
	require.Equal(t, "Martillo de zapatero", res.Payload["nombre"])

	res = a.Processor.ProcessText(context.Background(), constants.KindMaterial, "hola")
	require.Equal(t, pipeline.InsufficientName, res.Payload["nombre"])
}

func TestBuild_SQLiteCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.db")
	snap := catalog.NewSnapshot([]catalog.Record{{ID: 7, Nombre: "Mocasín", Materiales: []string{"Gamuza"}}})
	require.NoError(t, catalog.SaveSQLite(context.Background(), path, snap))

	cfg := offlineConfig(t)
	cfg.Catalog.SQLitePath = path
	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Catalog.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "Mocasín", res.Records[0].Nombre)
	require.Equal(t, 1, a.Processor.Snapshot(context.Background()).Len())
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.LLM.Providers = []common.ProviderConfig{{Name: "mystery"}}
	_, err := Build(context.Background(), cfg, nil)
	require.Equal(t, common.CodeConfig, common.CodeOf(err))
}
