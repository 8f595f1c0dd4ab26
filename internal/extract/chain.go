package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr"
)

// Chain tries extractors in order; the first success wins. When every
// extractor fails, the last real failure is returned together with whatever
// partial text it produced.
type Chain struct {
	extractors []TextExtractor
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, extractors ...TextExtractor) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{extractors: extractors, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Extract(ctx context.Context, req Request) (ocr.DocumentText, error) {
	var (
		last    ocr.DocumentText
		lastErr error
	)
	for _, e := range c.extractors {
		res, err := e.Extract(ctx, req)
		if err == nil {
			c.logger.Debug("extract.chain.ok", "extractor", e.Name(), "source", res.Source)
			return res, nil
		}
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		c.logger.Warn("extract.chain.fallback", "extractor", e.Name(), "code", common.CodeOf(err), "error", err)
		last, lastErr = res, err
		if common.CodeOf(err) == common.CodeInvalidInput {
			break
		}
	}
	if lastErr == nil {
		lastErr = common.NewAppError(common.CodeInvalidInput, "no extractor accepts this document", common.ErrUnsupportedFormat)
	}
	return last, lastErr
}
