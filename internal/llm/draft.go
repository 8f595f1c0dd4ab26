package llm

import "github.com/thereallexluttor/AaaS-Zapateria/internal/common"

// DraftKind tags the variant held by a Draft.
type DraftKind int

const (
	DraftFailed DraftKind = iota
	DraftStructured
	DraftRawText
)

func (k DraftKind) String() string {
	switch k {
	case DraftStructured:
		return "structured"
	case DraftRawText:
		return "raw_text"
	default:
		return "failed"
	}
}

// Draft is the unvalidated output of the model pipeline: a decoded mapping,
// model text that did not decode, or a failure reason.
type Draft struct {
	Kind       DraftKind
	Structured map[string]any
	Raw        string
	Reason     string
	Err        error
	// SchemaValid reports whether a structured draft passed schema validation.
	SchemaValid bool
	// Provider names the completer that produced the final role output.
	Provider string
}

func Structured(m map[string]any) Draft {
	if m == nil {
		m = map[string]any{}
	}
	return Draft{Kind: DraftStructured, Structured: m}
}

func RawText(s string) Draft { return Draft{Kind: DraftRawText, Raw: s} }

// Failed wraps err as EXTRACTION_FAILED.
func Failed(reason string, err error) Draft {
	if err == nil {
		err = common.ErrExtractionFailed
	}
	return Draft{
		Kind:   DraftFailed,
		Reason: reason,
		Err:    common.NewAppError(common.CodeExtractionFailed, reason, err),
	}
}

// Value is the draft as emitted verbatim by raw mode.
func (d Draft) Value() any {
	switch d.Kind {
	case DraftStructured:
		return d.Structured
	case DraftRawText:
		return d.Raw
	default:
		return map[string]any{"error": common.CodeExtractionFailed, "detalles": d.Reason}
	}
}
