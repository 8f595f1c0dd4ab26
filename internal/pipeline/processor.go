// Package pipeline wires the document stages together: text extraction,
// structured extraction, recovery, normalization and order reconciliation.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/metrics"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/ocr"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/reconcile"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/recovery"
)

// Result is the outcome of processing one document.
type Result struct {
	Kind   constants.DocumentKind
	Record record.Record
	// Payload is Record.Map(); nil in raw mode.
	Payload map[string]any
	// Raw is the verbatim draft value in raw mode.
	Raw        any
	Draft      llm.Draft
	Strategy   recovery.Strategy
	Step       reconcile.Step
	TextSource constants.RecognitionSource
	RequestID  string
	// Err is the degraded text stage failure, if any. The record is still
	// schema-complete.
	Err error
}

// Output is what the CLI and HTTP surfaces print.
func (r Result) Output() any {
	if r.Payload == nil && r.Raw != nil {
		return r.Raw
	}
	return r.Payload
}

// Processor coordinates the text stage then the parse stage. It is safe for
// concurrent use: each call works on its own values and a read-only
// catalog snapshot.
type Processor struct {
	logger  *slog.Logger
	text    *TextStage
	parse   *ParseStage
	catalog catalog.Source
	// fixed, when set, replaces a per-call catalog load
	fixed *catalog.Snapshot
}

func NewProcessor(logger *slog.Logger, text *TextStage, parse *ParseStage, src catalog.Source) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, text: text, parse: parse, catalog: src}
}

// WithSnapshot returns a processor that uses snap instead of fetching the
// catalog on every order.
func (p *Processor) WithSnapshot(snap *catalog.Snapshot) *Processor {
	cp := *p
	cp.fixed = snap
	return &cp
}

// Snapshot loads the catalog, degrading to an empty snapshot.
func (p *Processor) Snapshot(ctx context.Context) *catalog.Snapshot {
	if p.fixed != nil {
		return p.fixed
	}
	snap := catalog.Load(ctx, p.catalog, p.logger)
	if snap.Len() > 0 {
		metrics.CatalogFetchTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.CatalogFetchTotal.WithLabelValues("degraded").Inc()
	}
	return snap
}

func (p *Processor) snapshotFor(ctx context.Context, kind constants.DocumentKind) *catalog.Snapshot {
	if kind != constants.KindOrder {
		return catalog.Empty()
	}
	return p.Snapshot(ctx)
}

// ProcessFile reads path and parses it. Only input errors (missing file,
// unsupported extension) are returned; text stage failures degrade into the
// result.
func (p *Processor) ProcessFile(ctx context.Context, kind constants.DocumentKind, path, lang string) (Result, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	doc, err := p.text.Run(ctx, kind, path, lang)
	if common.CodeOf(err) == common.CodeInvalidInput {
		p.logger.Error("processor.text.invalid", "req_id", rid, "path", path, "error", err)
		return Result{Kind: kind, RequestID: rid}, err
	}

	res := p.processText(ctx, kind, doc.Text)
	res.TextSource = sourceOf(doc, err)
	res.Err = err
	p.done(res, start)
	return res, nil
}

// ProcessText parses caller-supplied text.
func (p *Processor) ProcessText(ctx context.Context, kind constants.DocumentKind, text string) Result {
	ctx, _ = common.EnsureRequestID(ctx)
	start := time.Now()
	res := p.processText(ctx, kind, ocr.Normalize(text))
	res.TextSource = constants.SourceInputText
	p.done(res, start)
	return res
}

func (p *Processor) processText(ctx context.Context, kind constants.DocumentKind, text string) Result {
	parsed := p.parse.Run(ctx, kind, text, p.snapshotFor(ctx, kind))
	return Result{
		Kind:      kind,
		Record:    parsed.Record,
		Payload:   parsed.Record.Map(),
		Draft:     parsed.Draft,
		Strategy:  parsed.Strategy,
		Step:      parsed.Step,
		RequestID: common.RequestIDFromContext(ctx),
	}
}

// RawFile is ProcessFile without recovery or normalization: the draft is
// returned verbatim.
func (p *Processor) RawFile(ctx context.Context, kind constants.DocumentKind, path, lang string) (Result, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	doc, err := p.text.Run(ctx, kind, path, lang)
	if common.CodeOf(err) == common.CodeInvalidInput {
		return Result{Kind: kind, RequestID: rid}, err
	}
	res := p.raw(ctx, kind, doc.Text)
	res.TextSource = sourceOf(doc, err)
	res.Err = err
	return res, nil
}

// RawText is ProcessText without recovery or normalization.
func (p *Processor) RawText(ctx context.Context, kind constants.DocumentKind, text string) Result {
	ctx, _ = common.EnsureRequestID(ctx)
	res := p.raw(ctx, kind, ocr.Normalize(text))
	res.TextSource = constants.SourceInputText
	return res
}

func (p *Processor) raw(ctx context.Context, kind constants.DocumentKind, text string) Result {
	draft, _ := p.parse.Draft(ctx, kind, text, p.snapshotFor(ctx, kind))
	p.logger.Info("processor.raw.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"kind", kind,
		"draft", draft.Kind.String(),
	)
	return Result{
		Kind:      kind,
		Raw:       draft.Value(),
		Draft:     draft,
		RequestID: common.RequestIDFromContext(ctx),
	}
}

func (p *Processor) done(res Result, start time.Time) {
	elapsed := time.Since(start)
	metrics.PipelineDuration.WithLabelValues(string(res.Kind)).Observe(elapsed.Seconds())
	p.logger.Info("processor.ok",
		"req_id", res.RequestID,
		"kind", res.Kind,
		"text_source", res.TextSource,
		"strategy", string(res.Strategy),
		"step", string(res.Step),
		"code", common.CodeOf(res.Err),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}
