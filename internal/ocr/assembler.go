package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

// PageMarker precedes each page's text in assembled output.
func PageMarker(i int) string {
	return fmt.Sprintf("\n--- Page %d ---\n", i)
}

// Assembler recognizes a PDF page by page and stitches the text together.
type Assembler struct {
	raster    *Rasterizer
	rec       *Recognizer
	runner    Runner
	pdftotext string
	timeout   time.Duration
	logger    *slog.Logger
}

// AssemblePDF recognizes every page in order, skipping rendering when the
// recognizer is unavailable. When the recognized content is
// empty or shorter than constants.MinUsableTextLen it falls back to the PDF's
// embedded text layer; when that is empty too, NO_TEXT_EXTRACTED.
func (a *Assembler) AssemblePDF(ctx context.Context, path string, dpi int, lang string) (DocumentText, error) {
	res := DocumentText{Format: constants.PDF, Source: constants.SourceError}
	var errs []error

	var pages []PageImage
	if err := a.rec.Available(ctx); err != nil {
		// rendering is pointless without a recognizer
		errs = append(errs, err)
		res.Warnings = append(res.Warnings, err.Error())
	} else {
		pages, err = a.raster.Render(ctx, path, dpi)
		if err != nil {
			errs = append(errs, err)
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
	res.Pages = len(pages)

	var (
		b       strings.Builder
		content int
		usedRaw bool
	)
	for _, p := range pages {
		rec := a.rec.Recognize(ctx, p.Image, lang)
		if !rec.OK() {
			a.logger.Warn("ocr.page.failed", "page", p.Index, "error", rec.Err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", p.Index, rec.Err))
			if rec.Err != nil {
				errs = append(errs, rec.Err)
			}
			if common.CodeOf(rec.Err) == common.CodeRecognizerUnavailable {
				break
			}
			continue
		}
		a.logger.Debug("ocr.page.recognized", "page", p.Index, "source", rec.Source, "chars", len(rec.Text))
		b.WriteString(PageMarker(p.Index))
		b.WriteString(rec.Text)
		content += len([]rune(strings.TrimSpace(rec.Text)))
		if rec.Source == constants.SourceRawOCR {
			usedRaw = true
		}
	}

	if content >= constants.MinUsableTextLen {
		res.Text = Normalize(b.String())
		res.Source = constants.SourceEnhancedOCR
		if usedRaw {
			res.Source = constants.SourceRawOCR
		}
		return res, nil
	}

	a.logger.Info("ocr.pdf.embedded_fallback", "path", path, "recognized_chars", content)
	embedded, pageCount, err := a.embeddedText(ctx, path)
	if err != nil {
		errs = append(errs, err)
		res.Warnings = append(res.Warnings, err.Error())
	}
	if strings.TrimSpace(embedded) != "" {
		res.Text = Normalize(embedded)
		res.Source = constants.SourceEmbeddedText
		if res.Pages == 0 {
			res.Pages = pageCount
		}
		return res, nil
	}

	// a short recognition beats nothing; the short-text gate downstream decides
	if content > 0 {
		res.Text = Normalize(b.String())
		res.Source = constants.SourceEnhancedOCR
		if usedRaw {
			res.Source = constants.SourceRawOCR
		}
		return res, nil
	}

	cause := errors.Join(errs...)
	if cause == nil {
		cause = common.ErrNoTextExtracted
	}
	return res, common.NewAppError(common.CodeNoTextExtracted, "no text recognized or embedded", cause)
}

// embeddedText runs: pdftotext -layout -enc UTF-8 -eol unix <path> -
func (a *Assembler) embeddedText(ctx context.Context, path string) (string, int, error) {
	callCtx, cancel := common.WithTimeout(ctx, a.timeout)
	defer cancel()
	out, errb, err := a.runner.Run(callCtx, a.pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	text := string(out)
	// form feed separates pages
	pages := 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return text, pages, nil
}
