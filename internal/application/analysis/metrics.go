package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeGenerate = "generate_failed"
	outcomeParse    = "parse_failed"
	outcomePersist  = "persist_failed"

	levelProcess    = "process"
	levelSubprocess = "subprocess"
	levelUseCase    = "use_case"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqanalyzer",
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Analysis runs by outcome",
	}, []string{"outcome"})

	entitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqanalyzer",
		Subsystem: "analysis",
		Name:      "persisted_entities_total",
		Help:      "Persisted tree nodes by level",
	}, []string{"level"})
)
