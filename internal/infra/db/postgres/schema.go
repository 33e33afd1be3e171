package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS proceso (
  id_proceso  BIGSERIAL PRIMARY KEY,
  nombre      TEXT NOT NULL,
  descripcion TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS subproceso (
  id_subproceso BIGSERIAL PRIMARY KEY,
  id_proceso    BIGINT NOT NULL REFERENCES proceso (id_proceso) ON DELETE CASCADE,
  nombre        TEXT NOT NULL,
  descripcion   TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS caso_uso (
  id_caso_uso             BIGSERIAL PRIMARY KEY,
  id_subproceso           BIGINT NOT NULL REFERENCES subproceso (id_subproceso) ON DELETE CASCADE,
  nombre                  TEXT NOT NULL,
  descripcion             TEXT NOT NULL,
  actor_principal         TEXT NOT NULL,
  tipo_caso_uso           INTEGER NOT NULL,
  precondiciones          TEXT NOT NULL,
  postcondiciones         TEXT NOT NULL,
  criterios_de_aceptacion TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS analysis_failures (
  id           BIGSERIAL PRIMARY KEY,
  run_id       TEXT NOT NULL,
  model        TEXT NOT NULL,
  phase        TEXT NOT NULL,
  message      TEXT NOT NULL,
  details_json JSONB NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL
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
