// Package metrics exposes Prometheus collectors for chat turns, tool calls
// and LLM streams.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "egw_chat"

var (
	// TurnsTotal counts finished chat turns by status.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Chat turns by final status.",
	}, []string{"status"})

	// ToolCallsTotal counts dispatched tool calls by tool and outcome.
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "Tool calls by tool name and outcome.",
	}, []string{"tool", "outcome"})

	// ToolCallDuration observes how long tool executions take.
	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tool_call_duration_seconds",
		Help:      "Tool execution latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})

	// LLMStreamsTotal counts completion streams by provider and outcome.
	LLMStreamsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_streams_total",
		Help:      "Streamed completions by provider and outcome.",
	}, []string{"provider", "outcome"})

	// LLMTokensTotal counts tokens reported by providers that send usage.
	LLMTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_tokens_total",
		Help:      "Tokens reported by the provider, by kind.",
	}, []string{"provider", "kind"})

	// ActiveSessions is the number of live sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently held in memory.",
	})

	// EvictedSessionsTotal counts sessions removed by the sweeper.
	EvictedSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evicted_sessions_total",
		Help:      "Sessions evicted for inactivity.",
	})
)

// Tool call outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeBlocked  = "blocked"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
)

// ObserveToolCall records one tool call.
func ObserveToolCall(tool, outcome string, elapsed time.Duration) {
	ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	if elapsed > 0 {
		ToolCallDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
	}
}

// ObserveUsage records provider token usage.
func ObserveUsage(provider string, prompt, completion int) {
	if prompt > 0 {
		LLMTokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		LLMTokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
