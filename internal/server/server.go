// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/catalog"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/export"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/metrics"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/pipeline"
)

// Processor is the part of pipeline.Processor the handlers use.
type Processor interface {
	ProcessFile(ctx context.Context, kind constants.DocumentKind, path, lang string) (pipeline.Result, error)
	ProcessText(ctx context.Context, kind constants.DocumentKind, text string) pipeline.Result
	RawFile(ctx context.Context, kind constants.DocumentKind, path, lang string) (pipeline.Result, error)
	RawText(ctx context.Context, kind constants.DocumentKind, text string) pipeline.Result
}

type Server struct {
	proc     Processor
	catalog  catalog.Source
	exporter *export.Service
	logger   *slog.Logger

	maxUpload int64
	lang      string
	tempDir   string
}

type Option func(*Server)

// WithMaxUploadMB bounds multipart request bodies.
func WithMaxUploadMB(mb int) Option {
	return func(s *Server) {
		if mb > 0 {
			s.maxUpload = int64(mb) << 20
		}
	}
}

// WithDefaultLang sets the recognition language used when a request names none.
func WithDefaultLang(lang string) Option {
	return func(s *Server) {
		if lang != "" {
			s.lang = lang
		}
	}
}

// WithTempDir sets where uploads are spooled while they are processed.
func WithTempDir(dir string) Option { return func(s *Server) { s.tempDir = dir } }

func New(proc Processor, src catalog.Source, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		proc:      proc,
		catalog:   src,
		exporter:  export.NewService(logger),
		logger:    logger,
		maxUpload: 32 << 20,
		lang:      "spa",
		tempDir:   os.TempDir(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes builds the router. metrics.Register must have been called for
// /metrics to expose the pipeline collectors.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(chimw.RequestID)
	r.Use(s.requestLog)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract/{kind}", s.extract)
		r.Get("/catalog", s.getCatalog)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.catalog == nil {
		writeJSON(w, http.StatusOK, catalog.Failed("Catálogo no configurado", nil).Payload())
		return
	}
	start := time.Now()
	res, err := s.catalog.Fetch(ctx)
	if err != nil && res.Error == "" {
		res = catalog.Failed("Error al obtener productos", err)
	}
	if res.Success {
		metrics.CatalogFetchTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.CatalogFetchTotal.WithLabelValues("degraded").Inc()
	}
	s.logger.Info("server.catalog.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"source", s.catalog.Name(),
		"success", res.Success,
		"total", res.Total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, res.Payload())
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeAppError maps err through its code; uncoded errors are internal.
func writeAppError(w http.ResponseWriter, err error) {
	var ae *common.AppError
	if !errors.As(err, &ae) {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	writeError(w, common.HTTPStatus(ae.Code), ae.Code, ae.Message)
}
