package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

// Strategy prepares an image before it is handed to tesseract.
// A nil Prepare recognizes the image untouched.
type Strategy struct {
	Name    string
	Source  constants.RecognitionSource
	Prepare func(image.Image) image.Image
}

// DefaultStrategies tries the enhanced image first, then the original:
// some scans recognize worse after binarization.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "enhanced", Source: constants.SourceEnhancedOCR, Prepare: Enhance},
		{Name: "raw", Source: constants.SourceRawOCR},
	}
}

// Recognizer turns one image into text with tesseract.
type Recognizer struct {
	cfg        Config
	runner     Runner
	logger     *slog.Logger
	strategies []Strategy

	probeOnce sync.Once
	bin       string
	probeErr  error
}

func newRecognizer(cfg Config, runner Runner, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		cfg:        cfg,
		runner:     runner,
		logger:     logger,
		strategies: DefaultStrategies(),
	}
}

// Available probes for the tesseract binary once and caches the answer.
func (r *Recognizer) Available(ctx context.Context) error {
	r.probeOnce.Do(func() {
		r.bin, r.probeErr = probeTesseract(ctx, r.runner, r.cfg.Tesseract)
		if r.probeErr != nil {
			r.logger.Warn("ocr.probe.unavailable", "configured", r.cfg.Tesseract, "error", r.probeErr)
		} else {
			r.logger.Debug("ocr.probe.ok", "bin", r.bin)
		}
	})
	return r.probeErr
}

// Recognize runs the strategies in order and returns the first result whose
// trimmed text reaches constants.MinUsableTextLen. When none does, the longest
// non-empty text wins. Failures come back as an ERROR-tagged Recognition.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image, lang string) Recognition {
	if err := r.Available(ctx); err != nil {
		return Recognition{Source: constants.SourceError, Err: err}
	}
	if lang == "" {
		lang = r.cfg.Lang
	}

	var best Recognition
	var errs []error
	for _, st := range r.strategies {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		prepared := img
		if st.Prepare != nil {
			prepared = st.Prepare(img)
		}

		start := time.Now()
		txt, err := r.tesseract(ctx, prepared, lang)
		if err != nil {
			r.logger.Warn("ocr.strategy.failed", "strategy", st.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", st.Name, err))
			continue
		}
		txt = strings.TrimSpace(txt)
		r.logger.Debug("ocr.strategy.done",
			"strategy", st.Name,
			"chars", len(txt),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if len([]rune(txt)) > len([]rune(best.Text)) {
			best = Recognition{Text: txt, Source: st.Source, Strategy: st.Name}
		}
		if len([]rune(txt)) >= constants.MinUsableTextLen {
			return Recognition{Text: txt, Source: st.Source, Strategy: st.Name}
		}
	}

	if best.Text != "" {
		return best
	}
	cause := errors.Join(errs...)
	if cause == nil {
		cause = common.ErrNoTextExtracted
	}
	return Recognition{
		Source: constants.SourceError,
		Err:    common.NewAppError(common.CodeNoTextExtracted, "recognition produced no text", cause),
	}
}

// tesseract writes img to a temp PNG and runs: tesseract <file> stdout -l <lang>
func (r *Recognizer) tesseract(ctx context.Context, img image.Image, lang string) (string, error) {
	f, err := os.CreateTemp("", "zap-ocr-*.png")
	if err != nil {
		return "", err
	}
	path := f.Name()
	_ = f.Close()
	defer os.Remove(path)

	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	args := []string{path, "stdout", "-l", lang}
	if r.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(r.cfg.PSM))
	}
	if r.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(r.cfg.OEM))
	}
	if r.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", filepath.Clean(r.cfg.TessdataDir))
	}

	callCtx, cancel := common.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	out, errb, err := r.runner.Run(callCtx, r.bin, args...)
	if err != nil {
		if callCtx.Err() != nil {
			return "", common.NewAppError(common.CodeRecognizerUnavailable, "tesseract timed out", callCtx.Err())
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
