// Command zapateria-batch extracts every supported document under a
// directory and writes the records to one XLSX workbook.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/app"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/batch"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/export"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dir         = flag.String("dir", "", "directory to process documents from (required)")
		kindStr     = flag.String("kind", string(constants.KindOrder), "document kind: material, producto, herramienta, orden")
		workers     = flag.Int("workers", 4, "documents processed concurrently")
		out         = flag.String("out", "", "output XLSX file path (optional, defaults to <dir>/../<kind>.xlsx)")
		lang        = flag.String("lang", "", "recognition language (default from config)")
		timeout     = flag.Duration("file-timeout", 3*time.Minute, "time budget per document")
		configPath  = flag.String("config", "", "YAML configuration file")
		saveCatalog = flag.String("save-catalog", "", "write the fetched catalog to this SQLite file for offline runs")
		watch       = flag.Bool("watch", false, "after the initial run, keep processing documents added to --dir")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		return 1
	}
	kind, err := constants.ParseKind(*kindStr)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), string(kind)+".xlsx")
	}

	cfg, err := common.LoadConfigFile(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	logger := common.NewLogger(os.Stderr, cfg.Logging)
	if *lang == "" {
		*lang = cfg.OCR.Lang
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("batch.build.failed", "error", err)
		return 1
	}
	defer a.Close()

	// one catalog read for the whole run
	snap := catalog.Empty()
	if kind == constants.KindOrder || *saveCatalog != "" {
		snap = a.Processor.Snapshot(ctx)
	}
	if *saveCatalog != "" {
		if err := catalog.SaveSQLite(ctx, *saveCatalog, snap); err != nil {
			logger.Error("batch.catalog.save_failed", "path", *saveCatalog, "error", err)
		} else {
			logger.Info("batch.catalog.saved", "path", *saveCatalog, "records", snap.Len())
		}
	}

	runner := batch.NewRunner(a.Processor.WithSnapshot(snap), logger,
		batch.WithWorkers(*workers),
		batch.WithFileTimeout(*timeout),
		batch.WithLang(*lang),
	)
	results, stats, err := runner.RunDirectory(ctx, kind, *dir)
	if err != nil {
		logger.Error("batch.run.failed", "dir", *dir, "error", err)
		return 1
	}

	rows := make([]export.Row, 0, len(results))
	for _, fr := range results {
		if fr.Err != "" || fr.Result.Record == nil {
			continue
		}
		rows = append(rows, export.Row{Source: fr.Path, Record: fr.Result.Record})
	}
	xlsx, err := export.NewService(logger).RecordsXLSX(kind, rows)
	if err != nil {
		logger.Error("batch.export.failed", "error", err)
		return 1
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("batch.export.write_failed", "path", *out, "error", err)
		return 1
	}

	summary := map[string]any{
		"dir":       *dir,
		"kind":      kind,
		"out":       *out,
		"scanned":   stats.Scanned,
		"matched":   stats.Matched,
		"succeeded": stats.Succeeded,
		"degraded":  stats.Degraded,
		"failed":    stats.Failed,
	}
	var failures []map[string]string
	for _, fr := range results {
		if fr.Err != "" {
			failures = append(failures, map[string]string{"path": fr.Path, "error": fr.Err})
		}
	}
	if len(failures) > 0 {
		summary["failures"] = failures
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(summary)

	if *watch {
		return watchDir(ctx, runner, kind, *dir, logger)
	}
	if stats.Failed > 0 {
		return 2
	}
	return 0
}

// watchDir prints one JSON line per document added to dir until interrupted.
func watchDir(ctx context.Context, runner *batch.Runner, kind constants.DocumentKind, dir string, logger *slog.Logger) int {
	paths, _, err := batch.Watch(ctx, batch.WatchConfig{Root: dir}, logger)
	if err != nil {
		logger.Error("batch.watch.failed", "dir", dir, "error", err)
		return 1
	}
	var mu sync.Mutex
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	runner.RunStream(ctx, kind, paths, func(fr batch.FileResult) {
		line := map[string]any{"path": fr.Path}
		if fr.Err != "" {
			line["error"] = fr.Err
		} else {
			line["result"] = fr.Result.Output()
			if fr.Result.Err != nil {
				line["code"] = common.CodeOf(fr.Result.Err)
			}
		}
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(line)
	})
	return 0
}
