package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/requirement-analyzer/internal/config"
)

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables for the configured database driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)

			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.conn.Close()

			if err := st.migrate(cmd.Context(), st.conn); err != nil {
				return err
			}
			logger.Info("migrate.done", "driver", cfg.Database.Driver)
			return nil
		},
	}
}
