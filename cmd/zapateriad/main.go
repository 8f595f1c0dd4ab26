// Command zapateriad serves the extraction pipeline over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/app"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("ZAPATERIA_CONFIG"), "YAML configuration file")
	flag.Parse()

	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		slog.Error("config.load.failed", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(os.Stdout, cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("app.build.failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := server.New(a.Processor, a.Catalog, logger,
		server.WithMaxUploadMB(cfg.Server.MaxUploadMB),
		server.WithDefaultLang(cfg.OCR.Lang),
	)
	httpSrv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("zapateriad listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("zapateriad shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("http.serve.failed", "error", err)
			a.Close()
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http.shutdown.failed", "error", err)
	}
	logger.Info("zapateriad stopped")
}
