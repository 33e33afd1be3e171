package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS proceso (
  id_proceso  BIGINT AUTO_INCREMENT PRIMARY KEY,
  nombre      VARCHAR(255) NOT NULL,
  descripcion TEXT NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS subproceso (
  id_subproceso BIGINT AUTO_INCREMENT PRIMARY KEY,
  id_proceso    BIGINT NOT NULL,
  nombre        VARCHAR(255) NOT NULL,
  descripcion   TEXT NOT NULL,
  CONSTRAINT fk_subproceso_proceso FOREIGN KEY (id_proceso) REFERENCES proceso (id_proceso) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS caso_uso (
  id_caso_uso             BIGINT AUTO_INCREMENT PRIMARY KEY,
  id_subproceso           BIGINT NOT NULL,
  nombre                  VARCHAR(255) NOT NULL,
  descripcion             TEXT NOT NULL,
  actor_principal         VARCHAR(255) NOT NULL,
  tipo_caso_uso           INT NOT NULL,
  precondiciones          TEXT NOT NULL,
  postcondiciones         TEXT NOT NULL,
  criterios_de_aceptacion TEXT NOT NULL,
  CONSTRAINT fk_caso_uso_subproceso FOREIGN KEY (id_subproceso) REFERENCES subproceso (id_subproceso) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS analysis_failures (
  id           BIGINT AUTO_INCREMENT PRIMARY KEY,
  run_id       VARCHAR(64) NOT NULL,
  model        VARCHAR(255) NOT NULL,
  phase        VARCHAR(32) NOT NULL,
  message      TEXT NOT NULL,
  details_json JSON NOT NULL,
  created_at   DATETIME(3) NOT NULL,
  INDEX idx_analysis_failures_run (run_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
