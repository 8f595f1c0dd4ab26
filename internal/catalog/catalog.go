// Package catalog reads the product catalog that order lines are reconciled
// against. Every source is read-only; a failed fetch degrades to an empty
// snapshot, never to a pipeline error.
package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Record is one catalog product.
type Record struct {
	ID         int64          `json:"id"`
	Nombre     string         `json:"nombre"`
	Stock      float64        `json:"stock"`
	Materiales []string       `json:"materiales"`
	Extra      map[string]any `json:"-"`
}

// Map renders the record as the catalog API returns it.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.Extra)+4)
	for k, v := range r.Extra {
		out[k] = v
	}
	mats := make([]string, len(r.Materiales))
	copy(mats, r.Materiales)
	out["id"] = r.ID
	out["nombre"] = r.Nombre
	out["stock"] = r.Stock
	out["materiales"] = mats
	return out
}

// Result is the outcome of one catalog read: {success, records, total} or
// {error, detail}.
type Result struct {
	Success bool
	Records []Record
	Total   int
	Error   string
	Detail  string
}

// Payload renders the result in the catalog reader's wire shape.
func (r Result) Payload() map[string]any {
	if !r.Success {
		return map[string]any{"error": r.Error, "detalles": r.Detail}
	}
	items := make([]map[string]any, 0, len(r.Records))
	for _, rec := range r.Records {
		items = append(items, rec.Map())
	}
	return map[string]any{"success": true, "productos": items, "total": r.Total}
}

// Failed builds an unsuccessful result.
func Failed(msg string, err error) Result {
	res := Result{Error: msg}
	if err != nil {
		res.Detail = err.Error()
	}
	return res
}

// Source reads the catalog.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Result, error)
}

// Snapshot is an immutable, id-indexed view of the catalog. It is safe to
// share across concurrent pipelines.
type Snapshot struct {
	records []Record
	byID    map[int64]int
}

// NewSnapshot indexes records by id. Later duplicates win.
func NewSnapshot(records []Record) *Snapshot {
	s := &Snapshot{
		records: make([]Record, 0, len(records)),
		byID:    make(map[int64]int, len(records)),
	}
	for _, r := range records {
		r.Materiales = append([]string{}, r.Materiales...)
		if i, ok := s.byID[r.ID]; ok {
			s.records[i] = r
			continue
		}
		s.byID[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	sort.SliceStable(s.records, func(i, j int) bool { return s.records[i].ID < s.records[j].ID })
	for i, r := range s.records {
		s.byID[r.ID] = i
	}
	return s
}

// Empty is the snapshot used when no catalog is available.
func Empty() *Snapshot { return NewSnapshot(nil) }

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Lookup finds the record with id.
func (s *Snapshot) Lookup(id int64) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// LookupName finds the first record whose nombre equals name, ignoring case
// and surrounding space.
func (s *Snapshot) LookupName(name string) (Record, bool) {
	name = strings.TrimSpace(name)
	if s == nil || name == "" {
		return Record{}, false
	}
	for _, r := range s.records {
		if strings.EqualFold(strings.TrimSpace(r.Nombre), name) {
			return r, true
		}
	}
	return Record{}, false
}

// Materials returns a copy of the materials of id, or an empty slice when
// the id is unknown.
func (s *Snapshot) Materials(id int64) []string {
	rec, ok := s.Lookup(id)
	if !ok {
		return []string{}
	}
	out := make([]string, len(rec.Materiales))
	copy(out, rec.Materiales)
	return out
}

// Records returns a copy of the records ordered by id.
func (s *Snapshot) Records() []Record {
	if s == nil {
		return nil
	}
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Load fetches from src and always returns a snapshot: failures, negative
// results and a nil source all yield an empty one.
func Load(ctx context.Context, src Source, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	if src == nil {
		return Empty()
	}
	start := time.Now()
	res, err := src.Fetch(ctx)
	if err != nil || !res.Success {
		logger.Warn("catalog.load.degraded",
			"source", src.Name(),
			"error", err,
			"detail", res.Detail,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Empty()
	}
	snap := NewSnapshot(res.Records)
	logger.Info("catalog.load.ok",
		"source", src.Name(),
		"records", snap.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return snap
}
