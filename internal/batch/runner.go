// Package batch processes many documents concurrently with a bounded worker
// pool. Every document runs its own pipeline; only the read-only catalog
// snapshot is shared.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/pipeline"
)

// FileProcessor is the part of pipeline.Processor the runner needs.
type FileProcessor interface {
	ProcessFile(ctx context.Context, kind constants.DocumentKind, path, lang string) (pipeline.Result, error)
}

// FileResult is the outcome for one document.
type FileResult struct {
	Path   string
	Result pipeline.Result
	Err    string
}

type Runner struct {
	proc    FileProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	lang    string
}

type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithFileTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLang(lang string) Option {
	return func(r *Runner) {
		if lang != "" {
			r.lang = lang
		}
	}
}

func NewRunner(proc FileProcessor, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		lang:    "spa",
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RunDirectory collects root (skipping hidden entries) and processes every
// supported document.
func (r *Runner) RunDirectory(ctx context.Context, kind constants.DocumentKind, root string) ([]FileResult, DirStats, error) {
	paths, stats, err := Collect(root, true)
	if err != nil {
		return nil, stats, err
	}
	r.logger.Info("batch.collect.ok", "dir", root, "scanned", stats.Scanned, "matched", stats.Matched)

	results := r.RunFiles(ctx, kind, paths)
	for _, fr := range results {
		switch {
		case fr.Err != "":
			stats.Failed++
		case fr.Result.Err != nil:
			stats.Degraded++
		default:
			stats.Succeeded++
		}
	}
	return results, stats, nil
}

// RunFiles processes paths on the worker pool. Results keep the input order.
// A cancelled ctx stops handing out new files; those are reported as failed.
func (r *Runner) RunFiles(ctx context.Context, kind constants.DocumentKind, paths []string) []FileResult {
	results := make([]FileResult, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.runOne(ctx, workerID, kind, paths[i])
			}
		}(w)
	}

	sent := 0
feed:
	for ; sent < len(paths); sent++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- sent:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i := sent; i < len(paths); i++ {
		results[i] = FileResult{Path: paths[i], Err: ctx.Err().Error()}
	}
	return results
}

func (r *Runner) runOne(parent context.Context, workerID int, kind constants.DocumentKind, path string) (fr FileResult) {
	fr.Path = path
	ctx, cancel := common.WithTimeout(parent, r.timeout)
	defer cancel()
	ctx, rid := common.EnsureRequestID(ctx)

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("batch.file.panic", "worker_id", workerID, "req_id", rid, "path", path, "panic", p)
			fr.Err = "panic during processing"
		}
	}()

	start := time.Now()
	res, err := r.proc.ProcessFile(ctx, kind, path, r.lang)
	fr.Result = res
	if err != nil {
		r.logger.Error("batch.file.failed", "worker_id", workerID, "req_id", rid, "path", path, "error", err)
		fr.Err = err.Error()
		return fr
	}
	r.logger.Info("batch.file.ok",
		"worker_id", workerID,
		"req_id", rid,
		"path", path,
		"identity", res.Record.Identity(),
		"code", common.CodeOf(res.Err),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fr
}
