// Package reconcile matches extracted order lines against the catalog and
// produces one line item per product and size.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/heuristic"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

// Step names the rung of the ladder that produced the order.
type Step string

const (
	StepModel     Step = "model"
	StepHeuristic Step = "heuristic"
	StepError     Step = "error"
)

// Error markers carried in Order.Error.
const (
	ErrNotJSON          = "No se pudo convertir la respuesta a JSON"
	ErrModelUnavailable = "No se pudo extraer la orden con el modelo"
	ErrNoLineItems      = "No se encontraron productos en la orden"
)

// Input is one order to reconcile.
type Input struct {
	// Draft is the recovered mapping; nil when nothing was recovered.
	Draft map[string]any
	// FromModel is false when Draft already came from the heuristic scan.
	FromModel bool
	// ModelFailed reports that the extractor produced no answer at all.
	ModelFailed bool
	Text        string
	Catalog     *catalog.Snapshot
}

type Reconciler struct {
	normalizer *record.Normalizer
	logger     *slog.Logger
}

func New(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{normalizer: record.NewNormalizer(logger), logger: logger}
}

// Reconcile never fails: (a) the model's lines re-expanded against the
// catalog, else (b) the heuristic line scan of the text, else (c) an error
// record with the best header available and no lines.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) (order record.Order, step Step) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("reconcile.panic", "req_id", rid, "panic", p)
			order = r.errorOrder(in, fmt.Sprintf("Error al procesar la orden de compra: %v", p))
			step = StepError
		}
		r.logger.Info("reconcile.ok",
			"req_id", rid,
			"step", string(step),
			"items", len(order.Productos),
			"catalog_records", in.Catalog.Len(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}()

	if in.FromModel && in.Draft != nil {
		order = r.fromModel(in.Draft, in.Catalog)
		if len(order.Productos) > 0 {
			return order, StepModel
		}
		r.logger.Warn("reconcile.model_no_items", "req_id", rid)
	}

	order = r.fromHeuristic(in)
	if len(order.Productos) > 0 {
		return order, StepHeuristic
	}
	return r.errorOrder(in, ErrNoLineItems), StepError
}

func (r *Reconciler) fromModel(draft map[string]any, snap *catalog.Snapshot) record.Order {
	m := make(map[string]any, len(draft))
	for k, v := range draft {
		m[k] = v
	}
	items, _ := m["productos"].([]any)
	m["productos"] = ExpandSizes(items)
	order := r.normalizer.NormalizeOrder(m)
	Attach(order.Productos, snap)
	return order
}

func (r *Reconciler) fromHeuristic(in Input) record.Order {
	scan := heuristic.Order(in.Text, in.Catalog)
	if !in.FromModel && in.Draft != nil {
		// the recoverer already scanned; keep what it found
		if items, ok := in.Draft["productos"].([]any); ok && len(items) > 0 {
			scan = in.Draft
		}
	}
	if hdr := modelHeader(in); hdr != nil {
		scan["ordenCompra"] = hdr
	}
	order := r.normalizer.NormalizeOrder(scan)
	Attach(order.Productos, in.Catalog)
	switch {
	case in.ModelFailed:
		order.Error = ErrModelUnavailable
	case in.FromModel || in.Draft == nil:
		order.Error = ""
	default:
		order.Error = ErrNotJSON
	}
	return order
}

func (r *Reconciler) errorOrder(in Input, msg string) record.Order {
	m := map[string]any{"ordenCompra": heuristic.OrderHeader(in.Text)}
	if hdr := modelHeader(in); hdr != nil {
		m["ordenCompra"] = hdr
	}
	order := r.normalizer.NormalizeOrder(m)
	order.Productos = []record.LineItem{}
	order.Error = msg
	return order
}

// modelHeader returns the model's header when it identifies the order.
func modelHeader(in Input) map[string]any {
	if !in.FromModel || in.Draft == nil {
		return nil
	}
	hdr, ok := in.Draft["ordenCompra"].(map[string]any)
	if !ok {
		return nil
	}
	if s, _ := hdr["numeroOrden"].(string); strings.TrimSpace(s) == "" {
		return nil
	}
	return hdr
}

var (
	reSizeSep   = regexp.MustCompile(`[\s,;/]+`)
	reSizeToken = regexp.MustCompile(`^\d{1,2}(?:\.5)?$`)
)

// ExpandSizes splits model lines that carry several sizes into one line per
// size. Accepted shapes: "tallas": ["38","39"], "tallas": {"38": 2},
// "talla": "38, 39". One declared quantity applies to every size.
func ExpandSizes(items []any) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		im, ok := it.(map[string]any)
		if !ok {
			continue
		}
		for _, sz := range sizesOf(im) {
			line := make(map[string]any, len(im))
			for k, v := range im {
				if k == "tallas" {
					continue
				}
				line[k] = v
			}
			line["talla"] = sz.talla
			if sz.cantidad != nil {
				line["cantidad"] = sz.cantidad
			}
			out = append(out, line)
		}
	}
	return out
}

type size struct {
	talla    string
	cantidad any
}

func sizesOf(im map[string]any) []size {
	switch t := im["tallas"].(type) {
	case []any:
		var out []size
		for _, v := range t {
			if v == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				out = append(out, size{talla: s})
			}
		}
		if len(out) > 0 {
			return out
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]size, 0, len(keys))
		for _, k := range keys {
			out = append(out, size{talla: strings.TrimSpace(k), cantidad: t[k]})
		}
		if len(out) > 0 {
			return out
		}
	}

	raw := ""
	switch t := im["talla"].(type) {
	case string:
		raw = t
	case float64:
		raw = fmt.Sprint(t)
	}
	if raw == "" {
		if s, ok := im["tallas"].(string); ok {
			raw = s
		}
	}
	// only lists made entirely of sizes are split; "No especificado" stays whole
	parts := reSizeSep.Split(strings.TrimSpace(raw), -1)
	out := make([]size, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if !reSizeToken.MatchString(p) {
			return []size{{talla: strings.TrimSpace(raw)}}
		}
		out = append(out, size{talla: p})
	}
	if len(out) < 2 {
		return []size{{talla: strings.TrimSpace(raw)}}
	}
	return out
}

// Attach resolves each line against the catalog: by id, else by exact
// product name. Matched lines get the catalog materials, unmatched lines an
// empty slice. Blank names and sizes get their placeholders.
func Attach(items []record.LineItem, snap *catalog.Snapshot) {
	for i := range items {
		it := &items[i]
		var rec catalog.Record
		ok := false
		if it.IDSupabase != nil {
			rec, ok = snap.Lookup(*it.IDSupabase)
		} else if rec, ok = snap.LookupName(it.Nombre); ok {
			it.IDSupabase = record.Int64(rec.ID)
		}
		if ok {
			it.Materiales = snap.Materials(rec.ID)
			if strings.TrimSpace(it.Nombre) == "" {
				it.Nombre = rec.Nombre
			}
		} else {
			it.Materiales = []string{}
		}
		if strings.TrimSpace(it.Nombre) == "" {
			it.Nombre = record.UnnamedLineItem
		}
		if strings.TrimSpace(it.Talla) == "" {
			it.Talla = record.UnspecifiedSize
		}
	}
}
