// Package sqlite opens a local SQLite database for development and tests.
// Trees and failures are stored through the mysql package repositories,
// whose `?`-placeholder SQL SQLite accepts as-is.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/bryanwahyu/requirement-analyzer/internal/infra/db"
)

// Connect opens path (":memory:" for a throwaway database) with foreign keys on.
// SQLite serializes writers, so the pool is pinned to one connection; this also
// keeps an in-memory database alive across calls.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.Pool{MaxOpenConns: 1, MaxIdleConns: 1}.Apply(conn)

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := db.Ping(ctx, conn); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return conn, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS proceso (
  id_proceso  INTEGER PRIMARY KEY AUTOINCREMENT,
  nombre      TEXT NOT NULL,
  descripcion TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS subproceso (
  id_subproceso INTEGER PRIMARY KEY AUTOINCREMENT,
  id_proceso    INTEGER NOT NULL REFERENCES proceso (id_proceso) ON DELETE CASCADE,
  nombre        TEXT NOT NULL,
  descripcion   TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS caso_uso (
  id_caso_uso             INTEGER PRIMARY KEY AUTOINCREMENT,
  id_subproceso           INTEGER NOT NULL REFERENCES subproceso (id_subproceso) ON DELETE CASCADE,
  nombre                  TEXT NOT NULL,
  descripcion             TEXT NOT NULL,
  actor_principal         TEXT NOT NULL,
  tipo_caso_uso           INTEGER NOT NULL,
  precondiciones          TEXT NOT NULL,
  postcondiciones         TEXT NOT NULL,
  criterios_de_aceptacion TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS analysis_failures (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id       TEXT NOT NULL,
  model        TEXT NOT NULL,
  phase        TEXT NOT NULL,
  message      TEXT NOT NULL,
  details_json TEXT NOT NULL,
  created_at   TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_failures_run ON analysis_failures (run_id, created_at)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for i, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
