package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

// FromConfig assembles the configured sources: direct database, Supabase
// REST, then the offline snapshot. The returned closer releases the pool.
func FromConfig(ctx context.Context, cfg common.CatalogConfig, logger *slog.Logger) (Source, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		sources []Source
		closer  = func() {}
	)
	if cfg.DSN != "" {
		pool, err := OpenPool(ctx, PoolConfig{
			DSN:             cfg.DSN,
			MaxConns:        4,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
		}, logger)
		if err != nil {
			logger.Warn("catalog.db.unavailable", "error", err)
		} else {
			sources = append(sources, NewPostgres(pool, cfg.Limit, cfg.Timeout, logger))
			closer = pool.Close
		}
	}
	if cfg.SupabaseURL != "" {
		sources = append(sources, NewSupabase(SupabaseConfig{
			URL:     cfg.SupabaseURL,
			APIKey:  cfg.SupabaseKey,
			Limit:   cfg.Limit,
			Timeout: cfg.Timeout,
		}, logger))
	}
	if cfg.SQLitePath != "" {
		sources = append(sources, NewSQLite(cfg.SQLitePath, cfg.Limit, logger))
	}
	return NewChain(logger, sources...), closer
}
