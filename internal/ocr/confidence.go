package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})\b`)
	reCurr   = regexp.MustCompile(`\b(eur|cop|usd|mxn)\b|[$€]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}([.,]\d{3})*([.,]\d{2})\b|\b\d+[.,]\d{2}\b`)
	reIDMark = regexp.MustCompile(`\((id|1d)\s*\d+`)
	reSizes  = regexp.MustCompile(`\btallas?\b`)
)

// ImageConfidenceThreshold is the score under which single-image text is
// flagged as low confidence.
const ImageConfidenceThreshold float32 = 0.45

// heuristicConfidence scores recognized text by the artifacts we expect on
// orders and inventory sheets. It is a hint, not a probability.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.1
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if reIDMark.MatchString(txtL) || reSizes.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
