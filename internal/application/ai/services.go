package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domai "github.com/bryanwahyu/requirement-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/requirement-analyzer/internal/infra/ai/prompt"
)

// DefaultModels are OpenRouter free models, cheapest/most available first.
var DefaultModels = []string{
	"qwen/qwen3-235b-a22b:free",
	"meta-llama/llama-3.2-3b-instruct:free",
	"mistralai/mistral-7b-instruct:free",
}

// DefaultRetryDelays is the escalating wait between rate-limited attempts on one model.
var DefaultRetryDelays = []time.Duration{800 * time.Millisecond, 2 * time.Second, 4 * time.Second}

// DefaultRetryAfter is suggested to callers once every model is saturated.
const DefaultRetryAfter = 30 * time.Second

// Action is what the fallback loop does after a failed attempt.
type Action int

const (
	ActionRetry     Action = iota // same model, after the next delay
	ActionNextModel               // give up on this model
	ActionFatal                   // stop the whole run
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionNextModel:
		return "next_model"
	case ActionFatal:
		return "fatal"
	}
	return "unknown"
}

// Classify maps a provider error onto the loop action.
func Classify(err error) Action {
	switch {
	case errors.Is(err, domai.ErrInsufficientCredits):
		return ActionFatal
	case errors.Is(err, domai.ErrRateLimited):
		return ActionRetry
	default:
		return ActionNextModel
	}
}

type Config struct {
	Models      []string
	RetryDelays []time.Duration
	RetryAfter  time.Duration
}

// Result of a successful generation.
type Result struct {
	Content  string
	Model    string
	Attempts int
}

// Service tries candidate models in order with bounded retries.
// It holds no per-call state and is safe for concurrent use.
type Service struct {
	client      domai.Client
	models      []string
	retryDelays []time.Duration
	retryAfter  time.Duration
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewService(client domai.Client, cfg Config, logger *slog.Logger) *Service {
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels
	}
	if cfg.RetryDelays == nil {
		cfg.RetryDelays = DefaultRetryDelays
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:      client,
		models:      cfg.Models,
		retryDelays: cfg.RetryDelays,
		retryAfter:  cfg.RetryAfter,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Generate sends the specification to the candidate models.
//
// Errors: ai.ErrInsufficientCredits stops immediately; rate limiting is retried
// on the same model per the delay schedule and then falls through to the next
// model; any other error falls through at once. When no model succeeds the
// result is *ai.SaturatedError.
func (s *Service) Generate(ctx context.Context, specification string) (Result, error) {
	messages := prompt.Messages(specification)
	start := time.Now()
	attempts := 0
	var lastErr error

models:
	for _, model := range s.models {
		for attempt := 0; attempt <= len(s.retryDelays); attempt++ {
			attempts++
			s.logger.Debug("llm.attempt", "model", model, "attempt", attempt+1)

			content, err := s.client.Complete(ctx, model, messages)
			if err == nil {
				observeAttempt(model, outcomeSuccess)
				generationDuration.Observe(time.Since(start).Seconds())
				s.logger.Info("llm.success", "model", model, "attempt", attempt+1, "chars", len(content))
				return Result{Content: content, Model: model, Attempts: attempts}, nil
			}
			lastErr = err
			if ctxErr := ctx.Err(); ctxErr != nil {
				observeAttempt(model, outcomeError)
				return Result{}, ctxErr
			}

			action := Classify(err)
			observeAttempt(model, outcomeFor(err))
			if action == ActionRetry && attempt == len(s.retryDelays) {
				s.logger.Warn("llm.rate_limited_exhausted", "model", model, "attempts", attempt+1)
				action = ActionNextModel
			}

			switch action {
			case ActionFatal:
				s.logger.Error("llm.insufficient_credits", "model", model, "error", err)
				return Result{}, err
			case ActionRetry:
				wait := s.retryDelays[attempt]
				s.logger.Warn("llm.rate_limited",
					"model", model,
					"retry_attempt", attempt+1,
					"retry_max", len(s.retryDelays),
					"retry_in_ms", wait.Milliseconds(),
				)
				if err := s.sleep(ctx, wait); err != nil {
					return Result{}, err
				}
				continue
			default:
				s.logger.Warn("llm.next_model", "model", model, "error", err)
				continue models
			}
		}
	}

	s.logger.Error("llm.saturated", "models", len(s.models), "attempts", attempts, "error", lastErr)
	return Result{}, &domai.SaturatedError{RetryAfter: s.retryAfter, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
