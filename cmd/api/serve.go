package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/requirement-analyzer/internal/config"
	"github.com/bryanwahyu/requirement-analyzer/internal/infra/httpserver"
	"github.com/bryanwahyu/requirement-analyzer/internal/middleware"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			checkers := map[string]middleware.HealthChecker{
				"database": &middleware.DatabaseHealthChecker{DB: a.store.conn},
			}
			if a.archive != nil {
				checkers["minio"] = a.archive
			}

			var limiter *middleware.RateLimiter
			if rps := *cfg.Server.RateLimit.RPS; rps > 0 {
				limiter = middleware.NewRateLimiter(rps, cfg.Server.RateLimit.Burst)
			}

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			srv := &http.Server{
				Addr: addr,
				Handler: httpserver.NewRouter(a.analysis, httpserver.Options{
					Logger:         logger,
					APIKeys:        cfg.Server.APIKeys,
					RateLimiter:    limiter,
					HealthCheckers: checkers,
					AllowedOrigins: cfg.Server.AllowedOrigins,
					MaxSpecChars:   cfg.Server.MaxSpecChars,
				}),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  2 * cfg.Server.ReadTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("server.listening", "addr", addr, "driver", cfg.Database.Driver)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("server.shutting_down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
