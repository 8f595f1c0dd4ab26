package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/extract"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/metrics"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr"
)

// TextStage reads a document into text: file -> DocumentText.
type TextStage struct {
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewTextStage(tx extract.TextExtractor, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{TextExtractor: tx, Logger: logger}
}

// Run validates the path and extension, then extracts. Input errors come back
// as INVALID_INPUT; pipeline failures carry their code and may still return
// partial text.
func (s *TextStage) Run(ctx context.Context, kind constants.DocumentKind, path, lang string) (ocr.DocumentText, error) {
	rid := common.RequestIDFromContext(ctx)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ocr.DocumentText{}, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("El archivo no existe: %s", path), common.ErrNotFound)
	}
	ext := filepath.Ext(path)
	if constants.MapExtToFormat(ext) == "" {
		return ocr.DocumentText{}, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("unsupported format: %s", ext), common.ErrUnsupportedFormat)
	}

	res, err := s.TextExtractor.Extract(ctx, extract.Request{Path: path, Kind: kind, Lang: lang})
	metrics.RecognitionTotal.WithLabelValues(string(sourceOf(res, err))).Inc()
	if err != nil {
		s.Logger.Warn("pipeline.text.failed",
			"req_id", rid,
			"path", path,
			"code", common.CodeOf(err),
			"error", err,
		)
		return res, err
	}

	// low-confidence text is still passed on; the model and heuristics cope
	if res.Format == constants.IMAGE && res.Confidence > 0 && res.Confidence < ocr.ImageConfidenceThreshold {
		s.Logger.Warn("pipeline.text.low_confidence", "req_id", rid, "path", path, "conf", res.Confidence)
	}
	s.Logger.Info("pipeline.text.ok",
		"req_id", rid,
		"path", path,
		"source", res.Source,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func sourceOf(res ocr.DocumentText, err error) constants.RecognitionSource {
	if err != nil || res.Source == "" {
		return constants.SourceError
	}
	return res.Source
}
