package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/disintegration/imaging"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

// Rasterizer renders PDF pages to images with pdftoppm.
type Rasterizer struct {
	bin      string
	maxPages int
	timeout  time.Duration
	runner   Runner
	logger   *slog.Logger
}

func newRasterizer(cfg Config, runner Runner, logger *slog.Logger) *Rasterizer {
	return &Rasterizer{
		bin:      cfg.Pdftoppm,
		maxPages: cfg.MaxPages,
		timeout:  cfg.Timeout,
		runner:   runner,
		logger:   logger,
	}
}

// Render returns the document's pages in order. An unreadable document
// yields no pages and a DOCUMENT_UNREADABLE error; callers treat the empty
// slice as "no text available".
func (r *Rasterizer) Render(ctx context.Context, path string, dpi int) ([]PageImage, error) {
	tmpDir, err := os.MkdirTemp("", "zap-pp-*")
	if err != nil {
		return nil, common.NewAppError(common.CodeDocumentUnreadable, "create temp dir", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("ocr.raster.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if r.maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(r.maxPages))
	}
	args = append(args, path, prefix)

	callCtx, cancel := common.WithTimeout(ctx, r.timeout)
	_, errb, err := r.runner.Run(callCtx, r.bin, args...)
	cancel()
	if err != nil {
		return nil, common.NewAppError(common.CodeDocumentUnreadable,
			fmt.Sprintf("pdftoppm: %s", truncate(string(errb), 512)), errors.Join(common.ErrDocumentUnreadable, err))
	}

	// prefix-1.png, prefix-2.png, ... zero-padded to the page count width
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if r.maxPages > 0 && len(matches) > r.maxPages {
		matches = matches[:r.maxPages]
	}
	if len(matches) == 0 {
		return nil, common.NewAppError(common.CodeDocumentUnreadable, "pdftoppm produced no images", common.ErrDocumentUnreadable)
	}

	pages := make([]PageImage, 0, len(matches))
	for i, m := range matches {
		img, err := imaging.Open(m)
		if err != nil {
			r.logger.Warn("ocr.raster.decode_failed", "page", i+1, "error", err)
			continue
		}
		pages = append(pages, PageImage{Index: i + 1, Image: img})
	}
	if len(pages) == 0 {
		return nil, common.NewAppError(common.CodeDocumentUnreadable, "no page could be decoded", common.ErrDocumentUnreadable)
	}
	r.logger.Debug("ocr.raster.done", "path", path, "dpi", dpi, "pages", len(pages))
	return pages, nil
}

// LoadImage decodes a still image, honouring EXIF orientation.
func LoadImage(path string) (PageImage, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return PageImage{}, common.NewAppError(common.CodeDocumentUnreadable, "decode image", errors.Join(common.ErrDocumentUnreadable, err))
	}
	return PageImage{Index: 1, Image: img}, nil
}
