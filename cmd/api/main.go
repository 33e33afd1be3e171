package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/requirement-analyzer/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "api",
		Short:         "Turn free-text specifications into process, subprocess and use case trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or config.yaml)")

	load := func() (*config.Config, error) {
		return config.Load(config.Path(configPath))
	}

	serve := newServeCmd(load)
	root.AddCommand(serve, newAnalyzeCmd(load), newMigrateCmd(load))
	// `api` with no subcommand serves
	root.RunE = serve.RunE
	return root
}
