package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/requirement-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/requirement-analyzer/internal/config"
	domai "github.com/bryanwahyu/requirement-analyzer/internal/domain/ai"
)

func newAnalyzeCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one specification from --file or stdin and print the tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := readSpecification(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if strings.TrimSpace(spec) == "" {
				return analysis.ErrEmptySpecification
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.analysis.Analyze(cmd.Context(), spec)
			if err != nil {
				var sat *domai.SaturatedError
				if errors.As(err, &sat) {
					return fmt.Errorf("%w; retry in %s (run %s)", err, sat.RetryAfter, res.RunID)
				}
				return fmt.Errorf("%w (run %s)", err, res.RunID)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSONTree(out, res)
			}
			fmt.Fprintf(out, "run %s, model %s\n\n", res.RunID, res.Model)
			return renderTree(out, res.Processes)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the specification from this file instead of stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the persisted tree as JSON")
	return cmd
}

func readSpecification(stdin io.Reader, file string) (string, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
