package batch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
)

type WatchConfig struct {
	Root     string        // watched recursively; hidden entries are ignored
	Debounce time.Duration // coalesce write bursts on the same file
}

// Watch emits supported documents created, written or renamed under
// cfg.Root. A path is emitted once per quiet period. Both channels close when
// ctx is done.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		return nil, nil, errors.New("root_path is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := addTree(w, cfg.Root, nil); err != nil {
		_ = w.Close()
		return nil, nil, err
	}
	logger.Info("batch.watch.start", "dir", cfg.Root, "debounce_ms", cfg.Debounce.Milliseconds())

	paths := make(chan string, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(paths)
		defer close(errs)
		defer func() { _ = w.Close() }()

		pending := map[string]struct{}{}
		timer := time.NewTimer(cfg.Debounce)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if isHidden(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						// files may land before the directory is watched
						err := addTree(w, e.Name, func(p string) { pending[p] = struct{}{} })
						if err != nil {
							logger.Warn("batch.watch.add_dir_failed", "path", e.Name, "error", err)
						}
						if len(pending) > 0 {
							timer.Reset(cfg.Debounce)
						}
						continue
					}
				}
				if !constants.IsAllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename) {
					pending[e.Name] = struct{}{}
					timer.Reset(cfg.Debounce)
				}

			case <-timer.C:
				batch := make([]string, 0, len(pending))
				for p := range pending {
					if _, err := os.Stat(p); err == nil {
						batch = append(batch, p)
					}
				}
				clear(pending)
				sort.Strings(batch)
				for _, p := range batch {
					select {
					case paths <- p:
					case <-ctx.Done():
						return
					}
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("batch.watch.error", "error", err)
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()

	return paths, errs, nil
}

// addTree watches dir and every non-hidden directory below it. found, when
// set, receives the supported documents already present.
func addTree(w *fsnotify.Watcher, dir string, found func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != dir && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if found != nil && constants.IsAllowedExt(filepath.Ext(path)) {
			found(path)
		}
		return nil
	})
}

// RunStream processes paths as they arrive until the channel closes or ctx
// is done, handing each result to emit. emit may be called concurrently.
func (r *Runner) RunStream(ctx context.Context, kind constants.DocumentKind, paths <-chan string, emit func(FileResult)) {
	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case p, ok := <-paths:
					if !ok {
						return
					}
					emit(r.runOne(ctx, workerID, kind, p))
				}
			}
		}(w)
	}
	wg.Wait()
}
