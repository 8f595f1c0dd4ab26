package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

var knownTesseractPaths = []string{
	"/usr/bin/tesseract",
	"/usr/local/bin/tesseract",
	"/opt/homebrew/bin/tesseract",
}

// probeTesseract returns the first tesseract binary that answers --version.
// Candidates that look like paths must exist on disk before they are tried.
func probeTesseract(ctx context.Context, r Runner, configured string) (string, error) {
	candidates := make([]string, 0, len(knownTesseractPaths)+1)
	if configured != "" {
		candidates = append(candidates, configured)
	}
	for _, p := range knownTesseractPaths {
		if p != configured {
			candidates = append(candidates, p)
		}
	}

	var lastErr error
	for _, bin := range candidates {
		if strings.ContainsRune(bin, os.PathSeparator) {
			if _, err := os.Stat(bin); err != nil {
				continue
			}
		}
		out, errb, err := r.Run(ctx, bin, "--version")
		if err != nil {
			lastErr = fmt.Errorf("%s --version: %w", bin, err)
			continue
		}
		// tesseract < 4 prints its banner on stderr
		if !strings.Contains(strings.ToLower(string(out)+string(errb)), "tesseract") {
			lastErr = fmt.Errorf("%s --version: unexpected banner", bin)
			continue
		}
		return bin, nil
	}
	if lastErr == nil {
		lastErr = common.ErrRecognizerUnavailable
	}
	return "", common.NewAppError(common.CodeRecognizerUnavailable, "tesseract not found", lastErr)
}
