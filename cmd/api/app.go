package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bryanwahyu/requirement-analyzer/internal/application"
	appai "github.com/bryanwahyu/requirement-analyzer/internal/application/ai"
	"github.com/bryanwahyu/requirement-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/requirement-analyzer/internal/config"
	"github.com/bryanwahyu/requirement-analyzer/internal/domain/failures"
	"github.com/bryanwahyu/requirement-analyzer/internal/domain/requirements"
	"github.com/bryanwahyu/requirement-analyzer/internal/infra/ai/openai"
	"github.com/bryanwahyu/requirement-analyzer/internal/infra/db"
	mysqlp "github.com/bryanwahyu/requirement-analyzer/internal/infra/db/mysql"
	"github.com/bryanwahyu/requirement-analyzer/internal/infra/db/postgres"
	"github.com/bryanwahyu/requirement-analyzer/internal/infra/db/sqlite"
	minioStore "github.com/bryanwahyu/requirement-analyzer/internal/infra/storage"
)

type store struct {
	conn     *sql.DB
	tree     requirements.Repository
	failures failures.Repository
	migrate  func(ctx context.Context, conn *sql.DB) error
}

// openStore connects the configured dialect. SQLite reuses the MySQL
// repositories since both speak `?` placeholders and LastInsertId.
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	pool := db.DefaultPool
	if cfg.Database.MaxOpenConns > 0 {
		pool.MaxOpenConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns > 0 {
		pool.MaxIdleConns = cfg.Database.MaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		pool.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	}

	switch cfg.Database.Driver {
	case "mysql":
		conn, err := mysqlp.Connect(ctx, cfg.MySQLDSN(), pool)
		if err != nil {
			return nil, err
		}
		return &store{conn, mysqlp.NewTreeRepository(conn), mysqlp.NewFailureRepository(conn), mysqlp.Migrate}, nil
	case "postgres":
		conn, err := postgres.Connect(ctx, cfg.PostgresDSN(), pool)
		if err != nil {
			return nil, err
		}
		return &store{conn, postgres.NewTreeRepository(conn), postgres.NewFailureRepository(conn), postgres.Migrate}, nil
	case "sqlite":
		conn, err := sqlite.Connect(ctx, cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		return &store{conn, mysqlp.NewTreeRepository(conn), mysqlp.NewFailureRepository(conn), sqlite.Migrate}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store
	archive  *minioStore.Store // nil when minio is not configured
	analysis *analysis.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	if cfg.Database.AutoMigrate {
		if err := st.migrate(ctx, st.conn); err != nil {
			st.conn.Close()
			return nil, err
		}
	}

	a := &app{cfg: cfg, logger: logger, store: st}

	svc := &analysis.Service{
		Repo:     st.tree,
		Failures: st.failures,
		Clock:    application.SystemClock{},
		Logger:   logger,
	}
	if cfg.Minio.Endpoint != "" {
		s, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			st.conn.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		a.archive = s
		svc.Archive = s
	}

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Referer:     cfg.LLM.Referer,
		Title:       cfg.LLM.Title,
		Temperature: *cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	svc.Generator = appai.NewService(client, appai.Config{
		Models:      cfg.LLM.Models,
		RetryDelays: cfg.LLM.RetryDelays,
		RetryAfter:  cfg.LLM.RetryAfter,
	}, logger)

	a.analysis = svc
	return a, nil
}

func (a *app) Close() error {
	return a.store.conn.Close()
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
