package extract

import (
	"context"
	"errors"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr"
)

// ErrUnsupported is returned by a TextExtractor that does not handle a
// request; a Chain moves on to the next extractor.
var ErrUnsupported = errors.New("extractor does not support this request")

// Request describes one document to read.
type Request struct {
	Path string
	Kind constants.DocumentKind
	Lang string
}

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Name() string
	Extract(ctx context.Context, req Request) (ocr.DocumentText, error)
}
