package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

// Config for the structured extractor.
type Config struct {
	// RoleTimeout bounds each role call; expiry counts as unavailability.
	RoleTimeout time.Duration
}

// Extractor runs the role pipeline (extraction -> formatting [-> comparison])
// over one document text. It holds no per-call state and is safe for
// concurrent use when its Completer is.
type Extractor struct {
	completer Completer
	cfg       Config
	logger    *slog.Logger
}

func NewExtractor(completer Completer, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RoleTimeout <= 0 {
		cfg.RoleTimeout = 30 * time.Second
	}
	return &Extractor{completer: completer, cfg: cfg, logger: logger}
}

// Extract never returns an error: failures come back as a Failed draft
// carrying an EXTRACTION_FAILED AppError.
func (e *Extractor) Extract(ctx context.Context, req Request) (draft Draft) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("llm.extract.panic", "req_id", rid, "panic", r)
			draft = Failed(fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	if e.completer == nil {
		return Failed("no completion backend configured", ErrUnavailable)
	}

	e.logger.Info("llm.extract.start",
		"req_id", rid,
		"kind", req.Kind,
		"provider", e.completer.Name(),
		"text_len", len(req.Text),
		"catalog_records", req.Catalog.Len(),
	)

	var content string
	for _, role := range Roles(req.Kind) {
		prompt := e.prompt(role, req, content)
		out, err := e.run(ctx, role, prompt)
		if err != nil {
			e.logger.Error("llm.extract.role_failed",
				"req_id", rid,
				"role", role.Name,
				"error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return Failed(fmt.Sprintf("%s role: %v", role.Name, err), err)
		}
		content = out
	}

	draft = e.shape(ctx, req.Kind, content)
	draft.Provider = e.completer.Name()
	e.logger.Info("llm.extract.ok",
		"req_id", rid,
		"kind", req.Kind,
		"draft", draft.Kind.String(),
		"schema_valid", draft.SchemaValid,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return draft
}

func (e *Extractor) prompt(role Role, req Request, previous string) string {
	switch role.Name {
	case RoleFormatting:
		return FormattingPrompt(req.Kind, req.Text, previous)
	case RoleComparison:
		return ComparisonPrompt(req.Text, previous, req.Catalog)
	default:
		return ExtractionPrompt(req.Kind, req.Text)
	}
}

func (e *Extractor) run(ctx context.Context, role Role, prompt string) (string, error) {
	ctx, cancel := common.WithTimeout(ctx, e.cfg.RoleTimeout)
	defer cancel()

	start := time.Now()
	e.logger.Debug("llm.role.start", "req_id", common.RequestIDFromContext(ctx), "role", role.Name, "prompt_len", len(prompt))
	out, err := e.completer.Complete(ctx, role.System(), prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty content")
	}
	e.logger.Debug("llm.role.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"role", role.Name,
		"content_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// shape turns the final role output into a draft. Whole-object JSON is
// sanitized and validated; anything else stays raw text for the recoverer.
func (e *Extractor) shape(ctx context.Context, kind constants.DocumentKind, content string) Draft {
	rid := common.RequestIDFromContext(ctx)
	if _, ok := DecodeObject(content); !ok {
		e.logger.Warn("llm.extract.non_json", "req_id", rid, "content_len", len(content))
		return RawText(content)
	}

	raw := []byte(StripCodeFences(content))
	schema := BuildSchema(kind)
	valid := ValidateJSONAgainstSchema(schema, raw) == nil
	if !valid {
		cleaned, changed, err := NormalizeAndSanitizeJSON(kind, raw, e.logger)
		if err == nil {
			raw = cleaned
			if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr == nil {
				valid = true
				e.logger.Warn("llm.extract.lenient_sanitize_applied", "req_id", rid, "changed", changed)
			} else {
				e.logger.Warn("llm.extract.schema_validation_failed",
					"req_id", rid,
					"code", common.CodeSchemaViolation,
					"error", vErr,
				)
			}
		}
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return RawText(content)
	}
	d := Structured(m)
	d.SchemaValid = valid
	return d
}
