package constants

// RecognitionSource tags where a piece of recognized text came from.
type RecognitionSource string

// Stable values (they appear in logs and API payloads).
const (
	SourceEnhancedOCR  RecognitionSource = "ENHANCED_OCR"  // binarized + denoised page
	SourceRawOCR       RecognitionSource = "RAW_OCR"       // original page, after enhancement came up short
	SourceEmbeddedText RecognitionSource = "EMBEDDED_TEXT" // PDF text layer
	SourceHostedOCR    RecognitionSource = "HOSTED_OCR"    // remote OCR API
	SourceInputText    RecognitionSource = "INPUT_TEXT"    // caller supplied text directly
	SourceError        RecognitionSource = "ERROR"
)

// MinUsableTextLen is the trimmed length below which recognized text is
// considered unusable.
const MinUsableTextLen = 10

// MinImageTextLen is the trimmed length below which a single image result is
// reported as too short.
const MinImageTextLen = 5
