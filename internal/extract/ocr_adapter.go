package extract

import (
	"context"
	"log/slog"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr"
)

// OCRAdapter exposes the local tesseract pipeline as a TextExtractor.
type OCRAdapter struct {
	e      *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Name() string { return "local-ocr" }

func (a *OCRAdapter) Extract(ctx context.Context, req Request) (ocr.DocumentText, error) {
	return a.e.Extract(ctx, req.Path, req.Kind, req.Lang)
}
