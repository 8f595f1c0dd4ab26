package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

// SupabaseConfig configures the REST catalog reader.
type SupabaseConfig struct {
	URL     string
	APIKey  string
	Table   string
	Limit   int
	Timeout time.Duration
	Client  *http.Client
}

// Supabase reads the catalog table through the Supabase REST API.
type Supabase struct {
	cfg    SupabaseConfig
	logger *slog.Logger
}

func NewSupabase(cfg SupabaseConfig, logger *slog.Logger) *Supabase {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Table == "" {
		cfg.Table = "productos"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Supabase{cfg: cfg, logger: logger}
}

func (s *Supabase) Name() string { return "supabase" }

// Fetch returns {error, detail} results for missing credentials and non-2xx
// responses; the error return is reserved for transport failures.
func (s *Supabase) Fetch(ctx context.Context) (Result, error) {
	if s.cfg.URL == "" || s.cfg.APIKey == "" {
		return Failed("Credenciales de Supabase no configuradas", nil), nil
	}

	u := fmt.Sprintf("%s/rest/v1/%s?select=*&limit=%d",
		strings.TrimRight(s.cfg.URL, "/"), url.PathEscape(s.cfg.Table), s.cfg.Limit)
	headers := map[string]string{
		"apikey":        s.cfg.APIKey,
		"Authorization": "Bearer " + s.cfg.APIKey,
	}

	ctx, cancel := common.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	raw, status, err := common.SendJSON(ctx, s.cfg.Client, http.MethodGet, u, nil, headers, s.logger)
	if err != nil {
		if status != 0 {
			return Failed(fmt.Sprintf("Error al obtener productos: %d", status), fmt.Errorf("%s", truncate(string(raw), 300))), nil
		}
		return Failed("Error al conectar con Supabase", err), err
	}

	recs, err := decodeRows(raw)
	if err != nil {
		return Failed("Respuesta de Supabase no válida", err), nil
	}
	return Result{Success: true, Records: recs, Total: len(recs)}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
