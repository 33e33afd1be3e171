package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/bryanwahyu/requirement-analyzer/internal/infra/db"
)

func Connect(ctx context.Context, dsn string, pool db.Pool) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pool.Apply(conn)

	if err := db.Ping(ctx, conn); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}
