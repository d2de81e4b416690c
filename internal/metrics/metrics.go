// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics declares the Prometheus collectors for research passes
// and writes them to a text file after a run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	// Pass metrics
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketing_research_passes_total",
			Help: "Total number of research passes by final status",
		},
		[]string{"status"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketing_research_phase_duration_seconds",
			Help:    "Pipeline phase duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	RefinementRounds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketing_research_refinement_rounds_total",
			Help: "Total number of refinement rounds executed",
		},
	)

	// Search metrics
	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketing_research_search_queries_total",
			Help: "Search calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketing_research_search_duration_seconds",
			Help:    "Search call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Citation metrics
	CitationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketing_research_citations_dropped_total",
			Help: "Citation tags removed because their source id did not resolve",
		},
	)

	SourcesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketing_research_sources_discovered_total",
			Help: "Distinct sources registered across passes",
		},
	)
)

// RecordSearch records one search call.
func RecordSearch(provider, outcome string, durationSeconds float64) {
	SearchQueries.WithLabelValues(provider, outcome).Inc()
	SearchDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordPhase records the duration of one pipeline phase.
func RecordPhase(phase string, durationSeconds float64) {
	PhaseDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordPass records the final status of a pass and its totals.
func RecordPass(status string, rounds, sources, dropped int) {
	PassesTotal.WithLabelValues(status).Inc()
	if rounds > 0 {
		RefinementRounds.Add(float64(rounds))
	}
	if sources > 0 {
		SourcesDiscovered.Add(float64(sources))
	}
	if dropped > 0 {
		CitationsDropped.Add(float64(dropped))
	}
}

// WriteFile writes every registered metric to path in the Prometheus text
// exposition format.
func WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
