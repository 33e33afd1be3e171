package ai

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domai "github.com/bryanwahyu/requirement-analyzer/internal/domain/ai"
)

const (
	outcomeSuccess     = "success"
	outcomeRateLimited = "rate_limited"
	outcomeNoCredits   = "no_credits"
	outcomeError       = "error"
)

var (
	// attemptsTotal counts provider calls by model and outcome
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqanalyzer",
		Subsystem: "llm",
		Name:      "attempts_total",
		Help:      "Provider calls by model and outcome",
	}, []string{"model", "outcome"})

	// generationDuration covers all attempts of a successful generation, retries included
	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reqanalyzer",
		Subsystem: "llm",
		Name:      "generation_duration_seconds",
		Help:      "Time until a candidate model succeeded",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
	})
)

func observeAttempt(model, outcome string) {
	attemptsTotal.WithLabelValues(model, outcome).Inc()
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domai.ErrInsufficientCredits):
		return outcomeNoCredits
	case errors.Is(err, domai.ErrRateLimited):
		return outcomeRateLimited
	default:
		return outcomeError
	}
}
