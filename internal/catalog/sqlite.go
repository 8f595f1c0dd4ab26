package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS productos (
	id         INTEGER PRIMARY KEY,
	nombre     TEXT NOT NULL DEFAULT '',
	stock      REAL NOT NULL DEFAULT 0,
	materiales TEXT NOT NULL DEFAULT '[]',
	extra      TEXT NOT NULL DEFAULT '{}'
)`

// SQLite reads an offline catalog snapshot file.
type SQLite struct {
	path   string
	limit  int
	logger *slog.Logger
}

func NewSQLite(path string, limit int, logger *slog.Logger) *SQLite {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 1000
	}
	return &SQLite{path: path, limit: limit, logger: logger}
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Fetch(ctx context.Context) (Result, error) {
	if s.path == "" {
		return Failed("Instantánea del catálogo no configurada", nil), nil
	}
	db, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return Failed("Error al abrir la instantánea", err), err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT id, nombre, stock, materiales, extra FROM productos ORDER BY id LIMIT ?`, s.limit)
	if err != nil {
		return Failed("Error al consultar la instantánea", err), err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec        Record
			mats, extr string
		)
		if err := rows.Scan(&rec.ID, &rec.Nombre, &rec.Stock, &mats, &extr); err != nil {
			return Failed("Error al leer la instantánea", err), err
		}
		rec.Materiales = asStrings(mats)
		rec.Extra = map[string]any{}
		if extr != "" {
			if err := json.Unmarshal([]byte(extr), &rec.Extra); err != nil {
				s.logger.Warn("catalog.sqlite.bad_extra", "id", rec.ID, "error", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return Failed("Error al leer la instantánea", err), err
	}
	return Result{Success: true, Records: out, Total: len(out)}, nil
}

// SaveSQLite writes snap to path, replacing any previous snapshot rows.
func SaveSQLite(ctx context.Context, path string, snap *Snapshot) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM productos`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO productos (id, nombre, stock, materiales, extra) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range snap.Records() {
		mats, _ := json.Marshal(rec.Materiales)
		extra, _ := json.Marshal(rec.Extra)
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Nombre, rec.Stock, string(mats), string(extra)); err != nil {
			return fmt.Errorf("insert %d: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}
