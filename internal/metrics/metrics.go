// Package metrics exposes Prometheus counters for chat turns, tool
// executions, and model calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatTurns counts completed chat turns by outcome
	// (success, fallback, error).
	ChatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskchat",
		Name:      "chat_turns_total",
		Help:      "Chat turns processed, by outcome.",
	}, []string{"outcome"})

	// ChatTurnDuration observes end-to-end chat turn latency.
	ChatTurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "taskchat",
		Name:      "chat_turn_duration_seconds",
		Help:      "End-to-end chat turn latency.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// ToolExecutions counts tool executions by tool name and status.
	ToolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskchat",
		Name:      "tool_executions_total",
		Help:      "Tool executions, by tool name and status.",
	}, []string{"tool", "status"})

	// ModelCalls counts completion requests by provider and status.
	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskchat",
		Name:      "model_calls_total",
		Help:      "Model completion calls, by provider and status.",
	}, []string{"provider", "status"})

	// RecurringSpawns counts tasks created by the recurring sweeper.
	RecurringSpawns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taskchat",
		Name:      "recurring_spawns_total",
		Help:      "Next occurrences created for completed recurring tasks.",
	})
)
