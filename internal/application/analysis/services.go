package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/requirement-analyzer/internal/application"
	appai "github.com/bryanwahyu/requirement-analyzer/internal/application/ai"
	"github.com/bryanwahyu/requirement-analyzer/internal/domain/failures"
	"github.com/bryanwahyu/requirement-analyzer/internal/domain/requirements"
	"github.com/bryanwahyu/requirement-analyzer/internal/infra/ai/prompt"
)

// ErrEmptySpecification is returned before any provider call when the input is blank.
var ErrEmptySpecification = errors.New("specification is required")

const excerptLen = 500

// Generator is the slice of the model orchestrator the service needs.
type Generator interface {
	Generate(ctx context.Context, specification string) (appai.Result, error)
}

// Service runs one analysis: generate, normalize, persist.
// Failures are recorded best-effort and never replace the returned error.
type Service struct {
	Generator Generator
	Repo      requirements.Repository
	Failures  failures.Repository // optional
	Archive   failures.RawArchive // optional
	Clock     application.Clock
	Logger    *slog.Logger
}

// Result of a completed analysis
type Result struct {
	RunID     string                 `json:"run_id"`
	Model     string                 `json:"model"`
	Processes []requirements.Process `json:"data"`
}

// Analyze generates and persists the process tree for a specification.
// RunID is set on the result even when an error is returned.
func (s *Service) Analyze(ctx context.Context, specification string) (Result, error) {
	runID := uuid.NewString()
	res := Result{RunID: runID}
	log := s.logger().With("run_id", runID)

	if strings.TrimSpace(specification) == "" {
		runsTotal.WithLabelValues(outcomeRejected).Inc()
		return res, ErrEmptySpecification
	}

	log.Info("analysis.start", "chars", len(specification))
	gen, err := s.Generator.Generate(ctx, specification)
	if err != nil {
		runsTotal.WithLabelValues(outcomeGenerate).Inc()
		s.recordFailure(ctx, log, failures.Failure{
			RunID:   runID,
			Phase:   failures.PhaseGenerate,
			Message: err.Error(),
		})
		return res, fmt.Errorf("generate: %w", err)
	}
	res.Model = gen.Model
	log = log.With("model", gen.Model)

	parsed, err := prompt.Parse(gen.Content)
	if err != nil {
		runsTotal.WithLabelValues(outcomeParse).Inc()
		log.Warn("analysis.invalid_output", "error", err, "excerpt", prompt.Excerpt(gen.Content, excerptLen))
		details := map[string]any{
			"attempts": gen.Attempts,
			"excerpt":  prompt.Excerpt(gen.Content, excerptLen),
		}
		if url := s.archive(ctx, log, runID, gen.Model, gen.Content); url != "" {
			details["raw_url"] = url
		}
		s.recordFailure(ctx, log, failures.Failure{
			RunID:       runID,
			Model:       gen.Model,
			Phase:       failures.PhaseParse,
			Message:     err.Error(),
			DetailsJSON: marshalDetails(details),
		})
		return res, fmt.Errorf("parse: %w", err)
	}

	saved, err := s.Repo.SaveTree(ctx, parsed)
	if err != nil {
		runsTotal.WithLabelValues(outcomePersist).Inc()
		s.recordFailure(ctx, log, failures.Failure{
			RunID:       runID,
			Model:       gen.Model,
			Phase:       failures.PhasePersist,
			Message:     err.Error(),
			DetailsJSON: marshalDetails(map[string]any{"processes": len(parsed)}),
		})
		return res, fmt.Errorf("persist: %w", err)
	}

	counts := requirements.Count(saved)
	entitiesTotal.WithLabelValues(levelProcess).Add(float64(counts.Processes))
	entitiesTotal.WithLabelValues(levelSubprocess).Add(float64(counts.Subprocesses))
	entitiesTotal.WithLabelValues(levelUseCase).Add(float64(counts.UseCases))
	runsTotal.WithLabelValues(outcomeSuccess).Inc()

	log.Info("analysis.done",
		"attempts", gen.Attempts,
		"processes", counts.Processes,
		"subprocesses", counts.Subprocesses,
		"use_cases", counts.UseCases,
	)
	res.Processes = saved
	return res, nil
}

// ListProcesses returns a page of persisted processes without children.
func (s *Service) ListProcesses(ctx context.Context, page, pageSize int) ([]*requirements.Process, error) {
	return s.Repo.Paginate(ctx, page, pageSize)
}

// GetProcess returns one persisted process with its nested tree.
func (s *Service) GetProcess(ctx context.Context, id int64) (*requirements.Process, error) {
	return s.Repo.Get(ctx, id)
}

// ListFailures returns recent failures, newest first. An empty runID lists all runs.
func (s *Service) ListFailures(ctx context.Context, runID string, limit int) ([]*failures.Failure, error) {
	if s.Failures == nil {
		return []*failures.Failure{}, nil
	}
	return s.Failures.List(ctx, runID, limit)
}

func (s *Service) recordFailure(ctx context.Context, log *slog.Logger, f failures.Failure) {
	if s.Failures == nil {
		return
	}
	f.CreatedAt = s.now()
	if err := s.Failures.Save(ctx, &f); err != nil {
		log.Error("analysis.failure_log", "phase", f.Phase, "error", err)
	}
}

func (s *Service) archive(ctx context.Context, log *slog.Logger, runID, model, content string) string {
	if s.Archive == nil {
		return ""
	}
	url, err := s.Archive.PutRaw(ctx, RawKey(runID, model), content)
	if err != nil {
		log.Error("analysis.archive", "error", err)
		return ""
	}
	return url
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

var keyReplacer = strings.NewReplacer("/", "_", ":", "_")

// RawKey is the archive key for one model response of a run.
func RawKey(runID, model string) string {
	return fmt.Sprintf("raw/%s/%s.txt", runID, keyReplacer.Replace(model))
}

func marshalDetails(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
