// Package recovery turns whatever the structured extractor produced into a
// mapping, degrading through progressively looser strategies.
package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/heuristic"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

// Strategy names the step that produced the recovered mapping.
type Strategy string

const (
	StrategyStructured   Strategy = "structured"
	StrategyJSONSpan     Strategy = "json-span"
	StrategyRepairedSpan Strategy = "repaired-span"
	StrategyHeuristic    Strategy = "heuristic"
	StrategyUnrecognized Strategy = "unrecognized"
)

// Outcome is always populated: Value is never nil.
type Outcome struct {
	Value    map[string]any
	Strategy Strategy
}

// Recoverer is stateless apart from the read-only material lookup used by
// the order heuristic.
type Recoverer struct {
	lookup heuristic.MaterialLookup
	logger *slog.Logger
}

func New(lookup heuristic.MaterialLookup, logger *slog.Logger) *Recoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recoverer{lookup: lookup, logger: logger}
}

// Recover resolves a draft. Failed drafts go straight to the heuristic over
// the document text.
func (r *Recoverer) Recover(ctx context.Context, kind constants.DocumentKind, draft llm.Draft, text string) Outcome {
	if draft.Kind == llm.DraftFailed {
		r.logger.Warn("recover.draft_failed",
			"req_id", common.RequestIDFromContext(ctx),
			"code", common.CodeExtractionFailed,
			"reason", draft.Reason,
		)
		return r.finish(ctx, kind, Outcome{Value: heuristic.Extract(kind, text, r.lookup), Strategy: StrategyHeuristic}, time.Now())
	}
	return r.RecoverValue(ctx, kind, draft.Value(), text)
}

// RecoverValue accepts any value: mappings are kept, strings are decoded as
// leniently as possible, anything else becomes the unrecognized record.
func (r *Recoverer) RecoverValue(ctx context.Context, kind constants.DocumentKind, v any, text string) (out Outcome) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("recover.panic", "req_id", common.RequestIDFromContext(ctx), "panic", p, "code", common.CodeRecoveryFailed)
			out = r.finish(ctx, kind, unrecognized(kind), start)
		}
	}()

	switch t := v.(type) {
	case map[string]any:
		return r.finish(ctx, kind, Outcome{Value: t, Strategy: StrategyStructured}, start)
	case string:
		return r.finish(ctx, kind, r.fromString(ctx, kind, t, text), start)
	default:
		r.logger.Warn("recover.unsupported_type",
			"req_id", common.RequestIDFromContext(ctx),
			"type", fmt.Sprintf("%T", v),
		)
		return r.finish(ctx, kind, unrecognized(kind), start)
	}
}

func (r *Recoverer) fromString(ctx context.Context, kind constants.DocumentKind, s, text string) Outcome {
	rid := common.RequestIDFromContext(ctx)
	span, ok := Span(s)
	if ok {
		m, err := decode(span)
		if err == nil {
			return Outcome{Value: m, Strategy: StrategyJSONSpan}
		}
		r.logger.Debug("recover.span_decode_failed", "req_id", rid, "error", err)
		if m, err := decode(Repair(span)); err == nil {
			return Outcome{Value: m, Strategy: StrategyRepairedSpan}
		}
	}

	// order lines quoted by the model are preferred over a rescan of the OCR text
	if kind == constants.KindOrder {
		if lines := heuristic.OrderLines(s, r.lookup); len(lines) > 0 {
			m := heuristic.Order(s, r.lookup)
			if strings.TrimSpace(text) != "" {
				m["ordenCompra"] = heuristic.OrderHeader(text)
			}
			return Outcome{Value: m, Strategy: StrategyHeuristic}
		}
	}
	src := text
	if strings.TrimSpace(src) == "" {
		src = s
	}
	return Outcome{Value: heuristic.Extract(kind, src, r.lookup), Strategy: StrategyHeuristic}
}

func (r *Recoverer) finish(ctx context.Context, kind constants.DocumentKind, out Outcome, start time.Time) Outcome {
	r.logger.Info("recover.strategy.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"kind", kind,
		"strategy", string(out.Strategy),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func unrecognized(kind constants.DocumentKind) Outcome {
	return Outcome{Value: record.UnrecognizedRecord(kind).Map(), Strategy: StrategyUnrecognized}
}

// Span returns the text from the first '{' to the last '}'.
func Span(s string) (string, bool) {
	s = llm.StripCodeFences(s)
	i := strings.Index(s, "{")
	j := strings.LastIndex(s, "}")
	if i < 0 || j <= i {
		return "", false
	}
	return s[i : j+1], true
}

var (
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	// a value or closing bracket, then a newline, then a member or an object
	reMissingComma  = regexp.MustCompile(`("|\d|true|false|null|[}\]])(\s*\n\s*)("[^"\n]+"\s*:|\{)`)
	smartQuotes     = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`)
)

// Repair fixes the malformations models commonly emit: smart quotes,
// trailing commas and missing commas between members split across lines.
func Repair(s string) string {
	s = smartQuotes.Replace(s)
	s = reTrailingComma.ReplaceAllString(s, "$1")
	s = reMissingComma.ReplaceAllString(s, "$1,$2$3")
	return s
}

func decode(s string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("json null")
	}
	return m, nil
}
