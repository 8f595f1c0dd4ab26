package llm

import (
	"context"
	"errors"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
)

// ErrUnavailable reports a completer that cannot serve requests at all
// (missing credentials, no configured providers).
var ErrUnavailable = errors.New("completion backend unavailable")

// Completer runs one role: role instructions as the system message and the
// prompt as the user message. It returns the raw model content.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Request is the input of one structured extraction.
type Request struct {
	Kind constants.DocumentKind
	Text string
	// Catalog feeds the comparison role of order documents. May be nil.
	Catalog *catalog.Snapshot
}

// Role is one stage of the model pipeline.
type Role struct {
	Name         string
	Instructions []string
}
