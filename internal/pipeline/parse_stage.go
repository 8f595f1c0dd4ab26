package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/metrics"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/reconcile"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/recovery"
)

// Short-text placeholder.
const (
	InsufficientName        = "Sin datos suficientes"
	InsufficientDescription = "El texto proporcionado es demasiado corto para extraer información útil."
)

// Parsed is the output of the parse stage.
type Parsed struct {
	Record   record.Record
	Draft    llm.Draft
	Strategy recovery.Strategy
	// Step is set for orders only.
	Step reconcile.Step
	// Short reports that the text never reached the extractor.
	Short bool
}

// ParseStage turns document text into a schema-complete record:
// short-text gate -> extractor -> recoverer -> normalizer (-> reconciler).
type ParseStage struct {
	Extractor  *llm.Extractor
	Normalizer *record.Normalizer
	Reconciler *reconcile.Reconciler
	Logger     *slog.Logger
}

func NewParseStage(extractor *llm.Extractor, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{
		Extractor:  extractor,
		Normalizer: record.NewNormalizer(logger),
		Reconciler: reconcile.New(logger),
		Logger:     logger,
	}
}

// IsShort reports whether text is below the usable threshold.
func IsShort(text string) bool {
	return len([]rune(strings.TrimSpace(text))) < constants.MinUsableTextLen
}

// Draft runs only the model pipeline. Short text yields a structured draft of
// the placeholder record.
func (p *ParseStage) Draft(ctx context.Context, kind constants.DocumentKind, text string, snap *catalog.Snapshot) (llm.Draft, bool) {
	if IsShort(text) {
		p.Logger.Warn("pipeline.parse.short_text",
			"req_id", common.RequestIDFromContext(ctx),
			"kind", kind,
			"chars", len(strings.TrimSpace(text)),
		)
		return llm.Structured(record.Placeholder(kind, InsufficientName, InsufficientDescription).Map()), true
	}
	d := p.Extractor.Extract(ctx, llm.Request{Kind: kind, Text: text, Catalog: snap})
	metrics.ExtractorOutcomeTotal.WithLabelValues(string(kind), d.Kind.String()).Inc()
	return d, false
}

// Run never fails; every degradation ends in a schema-complete record.
func (p *ParseStage) Run(ctx context.Context, kind constants.DocumentKind, text string, snap *catalog.Snapshot) Parsed {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	draft, short := p.Draft(ctx, kind, text, snap)
	if short {
		return Parsed{
			Record:   record.Placeholder(kind, InsufficientName, InsufficientDescription),
			Draft:    draft,
			Strategy: recovery.StrategyStructured,
			Short:    true,
		}
	}

	out := recovery.New(snap, p.Logger).Recover(ctx, kind, draft, text)
	metrics.RecoveryStrategyTotal.WithLabelValues(string(kind), string(out.Strategy)).Inc()

	parsed := Parsed{Draft: draft, Strategy: out.Strategy}
	if kind == constants.KindOrder {
		fromModel := out.Strategy != recovery.StrategyHeuristic && out.Strategy != recovery.StrategyUnrecognized
		order, step := p.Reconciler.Reconcile(ctx, reconcile.Input{
			Draft:       out.Value,
			FromModel:   fromModel,
			ModelFailed: draft.Kind == llm.DraftFailed,
			Text:        text,
			Catalog:     snap,
		})
		metrics.ReconcileStepTotal.WithLabelValues(string(step)).Inc()
		parsed.Record, parsed.Step = order, step
	} else {
		parsed.Record = p.Normalizer.Normalize(kind, out.Value)
	}

	p.Logger.Info("pipeline.parse.ok",
		"req_id", rid,
		"kind", kind,
		"draft", draft.Kind.String(),
		"strategy", string(out.Strategy),
		"step", string(parsed.Step),
		"identity", parsed.Record.Identity(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return parsed
}
