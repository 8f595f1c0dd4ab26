package ocr

import (
	"image"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
)

// PageImage is one rendered page, owned by the caller until recognized.
type PageImage struct {
	Index int // 1-based
	Image image.Image
}

// Recognition is the outcome of recognizing one image.
// Text is non-empty unless Source is constants.SourceError.
type Recognition struct {
	Text     string
	Source   constants.RecognitionSource
	Strategy string
	Err      error
}

// OK reports whether the recognition produced text.
func (r Recognition) OK() bool {
	return r.Source != constants.SourceError && r.Text != ""
}

// DocumentText is the assembled text of a whole document.
type DocumentText struct {
	Text       string
	Pages      int
	Format     string // constants.PDF | constants.IMAGE | constants.TEXT
	Source     constants.RecognitionSource
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}
