package extract

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr/mistral"
)

// HostedAdapter sends whole documents to the Mistral OCR API.
type HostedAdapter struct {
	client  *mistral.Client
	kinds   []constants.DocumentKind
	timeout time.Duration
	logger  *slog.Logger
}

// NewHostedAdapter restricts hosted recognition to kinds; none means all.
func NewHostedAdapter(client *mistral.Client, timeout time.Duration, logger *slog.Logger, kinds ...constants.DocumentKind) *HostedAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HostedAdapter{client: client, kinds: kinds, timeout: timeout, logger: logger}
}

func (a *HostedAdapter) Name() string { return "hosted-ocr" }

func (a *HostedAdapter) Extract(ctx context.Context, req Request) (ocr.DocumentText, error) {
	if len(a.kinds) > 0 && !slices.Contains(a.kinds, req.Kind) {
		return ocr.DocumentText{}, ErrUnsupported
	}
	start := time.Now()

	callCtx, cancel := common.WithTimeout(ctx, a.timeout)
	defer cancel()

	doc, err := a.client.ExtractFile(callCtx, req.Path)
	if errors.Is(err, mistral.ErrUnsupported) {
		return ocr.DocumentText{}, ErrUnsupported
	}
	if err != nil {
		return ocr.DocumentText{}, common.NewAppError(common.CodeRecognizerUnavailable, "hosted ocr failed", err)
	}

	var b strings.Builder
	for i, p := range doc.Pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		b.WriteString(ocr.PageMarker(i + 1))
		b.WriteString(p)
	}
	text := ocr.Normalize(b.String())
	if len([]rune(strings.TrimSpace(doc.Text()))) < constants.MinUsableTextLen {
		return ocr.DocumentText{}, common.NewAppError(common.CodeNoTextExtracted, "hosted ocr returned no usable text", common.ErrNoTextExtracted)
	}

	return ocr.DocumentText{
		Text:     text,
		Pages:    len(doc.Pages),
		Format:   constants.MapExtToFormat(filepath.Ext(req.Path)),
		Source:   constants.SourceHostedOCR,
		Language: req.Lang,
		Duration: time.Since(start),
	}, nil
}
