// Package metrics centralizes the runtime's Prometheus instrumentation,
// grounded on the teacher's internal/observability/metrics.go: one struct of
// promauto-registered vectors built once at startup. EventSubscriber feeds the
// tool-execution, loop-detection and task-iteration metrics from the agent
// event stream; nothing in the runtime calls ObserveBridgeCall,
// ObserveCompression or ObserveSubAgentRun.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram/gauge the runtime exposes on its
// /metrics surface.
type Metrics struct {
	// ToolExecutionCounter counts dispatches by tool and outcome.
	// Labels: tool_name, status (success|error|loop_detected|cancelled)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures dispatch latency in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// LoopDetectionCounter counts vetoed calls by classifier.
	// Labels: loop_type
	LoopDetectionCounter *prometheus.CounterVec

	// BridgeCallCounter counts external-tool-bridge calls by server/outcome.
	// Labels: server, status (success|error|unavailable)
	BridgeCallCounter *prometheus.CounterVec

	// CompressionCounter counts compression passes by outcome.
	// Labels: outcome (compressed|skipped|failed)
	CompressionCounter *prometheus.CounterVec

	// IterationsPerTask observes how many main-loop iterations a task takes.
	IterationsPerTask prometheus.Histogram

	// SubAgentRuns counts sub-agent terminations by reason.
	// Labels: terminate_reason (GOAL|MAX_TURNS|TIMEOUT|ERROR)
	SubAgentRuns *prometheus.CounterVec

	// ActiveSubAgents gauges concurrently running sub-agents.
	ActiveSubAgents prometheus.Gauge
}

// New creates and registers every metric against reg. Passing
// prometheus.DefaultRegisterer matches the teacher's NewMetrics() behavior
// of registering against the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ToolExecutionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_tool_executions_total",
				Help: "Total tool dispatches by tool name and outcome.",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_tool_execution_duration_seconds",
				Help:    "Tool dispatch latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),
		LoopDetectionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_loop_detections_total",
				Help: "Vetoed tool calls by loop-detection classifier.",
			},
			[]string{"loop_type"},
		),
		BridgeCallCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_bridge_calls_total",
				Help: "External tool bridge calls by server and outcome.",
			},
			[]string{"server", "status"},
		),
		CompressionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_context_compressions_total",
				Help: "Context/token manager compression passes by outcome.",
			},
			[]string{"outcome"},
		),
		IterationsPerTask: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agent_task_iterations",
				Help:    "Main agent loop iterations consumed per task run.",
				Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20, 30},
			},
		),
		SubAgentRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_subagent_runs_total",
				Help: "Sub-agent runs by termination reason.",
			},
			[]string{"terminate_reason"},
		),
		ActiveSubAgents: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agent_subagent_active",
				Help: "Currently running sub-agents.",
			},
		),
	}
}

// ObserveToolExecution records one Dispatch outcome.
func (m *Metrics) ObserveToolExecution(toolName, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

// ObserveLoopDetection records one vetoed call.
func (m *Metrics) ObserveLoopDetection(loopType string) {
	if m == nil {
		return
	}
	m.LoopDetectionCounter.WithLabelValues(loopType).Inc()
}

// ObserveBridgeCall records one external-bridge call outcome.
func (m *Metrics) ObserveBridgeCall(server, status string) {
	if m == nil {
		return
	}
	m.BridgeCallCounter.WithLabelValues(server, status).Inc()
}

// ObserveCompression records one compression pass outcome.
func (m *Metrics) ObserveCompression(outcome string) {
	if m == nil {
		return
	}
	m.CompressionCounter.WithLabelValues(outcome).Inc()
}

// ObserveTaskIterations records the iteration count of a finished task run.
func (m *Metrics) ObserveTaskIterations(n int) {
	if m == nil {
		return
	}
	m.IterationsPerTask.Observe(float64(n))
}

// ObserveSubAgentRun records one sub-agent termination.
func (m *Metrics) ObserveSubAgentRun(reason string) {
	if m == nil {
		return
	}
	m.SubAgentRuns.WithLabelValues(reason).Inc()
}
