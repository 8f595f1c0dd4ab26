package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig configures the pgx pool behind the Postgres source.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// OpenPool creates a pgx pool for read-only catalog queries.
func OpenPool(ctx context.Context, cfg PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("catalog.db.config_error", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "zapateria-catalog"
	pc.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("catalog.db.connect_error", "error", err)
		return nil, err
	}
	logger.Info("catalog.db.connected", "host", pc.ConnConfig.Host, "database", pc.ConnConfig.Database)
	return pool, nil
}

// Postgres reads the catalog table straight from the database behind Supabase.
type Postgres struct {
	pool    *pgxpool.Pool
	table   string
	limit   int
	timeout time.Duration
	logger  *slog.Logger
}

func NewPostgres(pool *pgxpool.Pool, limit int, timeout time.Duration, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 1000
	}
	return &Postgres{pool: pool, table: "productos", limit: limit, timeout: timeout, logger: logger}
}

func (p *Postgres) Name() string { return "postgres" }

// Fetch selects whole rows as JSON so the table's extra columns survive.
func (p *Postgres) Fetch(ctx context.Context) (Result, error) {
	if p.pool == nil {
		return Failed("Base de datos no configurada", nil), nil
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	q := fmt.Sprintf(`SELECT to_jsonb(t) FROM %s t ORDER BY t.id LIMIT $1`, p.table)
	rows, err := p.pool.Query(ctx, q, p.limit)
	if err != nil {
		return Failed("Error al consultar productos", err), err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return Failed("Error al leer productos", err), err
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			p.logger.Warn("catalog.db.bad_row", "error", err)
			continue
		}
		if rec, ok := FromMap(m); ok {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return Failed("Error al leer productos", err), err
	}
	return Result{Success: true, Records: out, Total: len(out)}, nil
}
