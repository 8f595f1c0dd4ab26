// Package app assembles the pipeline from configuration. The binaries under
// cmd/ share it.
package app

import (
	"context"
	"log/slog"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/extract"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm/provider"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/metrics"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr/mistral"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/pipeline"
)

// App is a wired processor plus the resources it holds.
type App struct {
	Processor *pipeline.Processor
	Catalog   catalog.Source
	closers   []func()
}

// Close releases pooled connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build wires text extraction (hosted OCR for orders when a Mistral key is
// set, then local OCR), the provider chain and the catalog sources.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	metrics.Register()

	var texts []extract.TextExtractor
	if cfg.OCR.MistralAPIKey != "" {
		client, err := mistral.New(
			mistral.WithToken(cfg.OCR.MistralAPIKey),
			mistral.WithURL(cfg.OCR.MistralURL),
			mistral.WithModel(cfg.OCR.MistralModel),
		)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "mistral client", err)
		}
		texts = append(texts, extract.NewHostedAdapter(client, cfg.OCR.Timeout, logger, constants.KindOrder))
	}
	local := ocr.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger)
	if err := local.Recognizer().Available(ctx); err != nil {
		// documents still degrade per file; inline text keeps working
		logger.Warn("app.ocr.unavailable", "error", err)
	}
	texts = append(texts, extract.NewOCRAdapter(local, logger))

	completer, err := provider.FromConfig(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	extractor := llm.NewExtractor(completer, llm.Config{RoleTimeout: cfg.LLM.Timeout}, logger)

	src, closeCatalog := catalog.FromConfig(ctx, cfg.Catalog, logger)

	proc := pipeline.NewProcessor(logger,
		pipeline.NewTextStage(extract.NewChain(logger, texts...), logger),
		pipeline.NewParseStage(extractor, logger),
		src,
	)
	logger.Info("app.build.ok",
		"text_extractors", len(texts),
		"llm", completer.Name(),
		"catalog", src.Name(),
	)
	return &App{Processor: proc, Catalog: src, closers: []func(){closeCatalog}}, nil
}
