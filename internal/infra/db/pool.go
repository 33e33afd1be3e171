// Package db holds what the dialect packages share: pool tuning and the startup ping.
package db

import (
	"context"
	"database/sql"
	"time"
)

// Pool settings applied to every *sql.DB the service opens.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPool matches the sizing used in production.
var DefaultPool = Pool{MaxOpenConns: 25, MaxIdleConns: 10, ConnMaxLifetime: 30 * time.Minute}

func (p Pool) Apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
}

// Ping checks the connection with a short timeout and closes db on failure.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return err
	}
	return nil
}
