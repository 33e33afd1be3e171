package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/requirement-analyzer/internal/infra/db"
)

func Connect(ctx context.Context, dsn string, pool db.Pool) (*sql.DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	pool.Apply(conn)

	if err := db.Ping(ctx, conn); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return conn, nil
}
