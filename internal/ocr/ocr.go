package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Lang     string // default "spa"
	DPI      int    // 0 = constants.DocumentKind.RenderDPI()
	MaxPages int    // 0 = no limit

	TessdataDir string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	Timeout time.Duration // per external command; 0 = none
}

// ConfigFrom maps the process configuration onto the OCR settings.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Pdftotext:   c.Pdftotext,
		Pdftoppm:    c.Pdftoppm,
		Tesseract:   c.Tesseract,
		Lang:        c.Lang,
		DPI:         c.DPI,
		MaxPages:    c.MaxPages,
		TessdataDir: c.TessdataDir,
		PSM:         c.PSM,
		OEM:         c.OEM,
		Timeout:     c.Timeout,
	}
}

// Extractor turns a document on disk into DocumentText.
type Extractor struct {
	cfg       Config
	runner    Runner
	logger    *slog.Logger
	raster    *Rasterizer
	rec       *Recognizer
	assembler *Assembler
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return NewExtractorWithRunner(cfg, ExecRunner{Logger: logger}, logger)
}

// NewExtractorWithRunner is NewExtractor with an injected command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "spa"
	}
	e := &Extractor{cfg: cfg, runner: runner, logger: logger}
	e.raster = newRasterizer(cfg, runner, logger)
	e.rec = newRecognizer(cfg, runner, logger)
	e.assembler = &Assembler{
		raster:    e.raster,
		rec:       e.rec,
		runner:    runner,
		pdftotext: cfg.Pdftotext,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
	return e
}

// Recognizer exposes the underlying recognizer, mainly for probing at startup.
func (e *Extractor) Recognizer() *Recognizer { return e.rec }

// Extract picks a strategy based on file extension. The returned error is an
// *common.AppError carrying one of the pipeline codes; DocumentText may still
// hold partial text alongside it.
func (e *Extractor) Extract(ctx context.Context, path string, kind constants.DocumentKind, lang string) (DocumentText, error) {
	start := time.Now()
	if lang == "" {
		lang = e.cfg.Lang
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("ocr.extract.start", "path", path, "ext", ext, "kind", kind, "lang", lang)

	var (
		res DocumentText
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		dpi := e.cfg.DPI
		if dpi <= 0 {
			dpi = kind.RenderDPI()
		}
		res, err = e.assembler.AssemblePDF(ctx, path, dpi, lang)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path, lang)
	case constants.TEXT:
		res, err = e.extractPlain(path)
	default:
		e.logger.Error("ocr.extract.unsupported", "extension", ext)
		return DocumentText{}, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("unsupported extension: %q", ext), common.ErrUnsupportedFormat)
	}

	res.Language = lang
	res.Duration = time.Since(start)
	if res.Text != "" {
		res.Confidence = heuristicConfidence(res.Text)
	}
	if err != nil {
		e.logger.Warn("ocr.extract.degraded",
			"path", path,
			"code", common.CodeOf(err),
			"elapsed_ms", res.Duration.Milliseconds(),
			"error", err,
		)
	} else {
		e.logger.Info("ocr.extract.ok",
			"path", path,
			"source", res.Source,
			"pages", res.Pages,
			"chars", len(res.Text),
			"elapsed_ms", res.Duration.Milliseconds(),
		)
	}
	return res, err
}

func (e *Extractor) extractImage(ctx context.Context, path, lang string) (DocumentText, error) {
	res := DocumentText{Format: constants.IMAGE, Pages: 1, Source: constants.SourceError}
	page, err := LoadImage(path)
	if err != nil {
		return res, err
	}
	rec := e.rec.Recognize(ctx, page.Image, lang)
	if !rec.OK() {
		return res, rec.Err
	}
	txt := Normalize(rec.Text)
	res.Text = txt
	res.Source = rec.Source
	if len([]rune(txt)) < constants.MinImageTextLen {
		return res, common.NewAppError(common.CodeNoTextExtracted, "recognized text too short", common.ErrNoTextExtracted)
	}
	return res, nil
}

func (e *Extractor) extractPlain(path string) (DocumentText, error) {
	res := DocumentText{Format: constants.TEXT, Pages: 1, Source: constants.SourceInputText}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		res.Source = constants.SourceError
		return res, common.NewAppError(common.CodeDocumentUnreadable, "read text file", err)
	}
	res.Text = Normalize(string(data))
	if res.Text == "" {
		return res, common.NewAppError(common.CodeNoTextExtracted, "text file is empty", common.ErrNoTextExtracted)
	}
	return res, nil
}
