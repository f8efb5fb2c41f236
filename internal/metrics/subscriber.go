package metrics

import (
	"context"
	"time"

	"github.com/reactorhq/agent/pkg/models"
)

// EventSubscriber adapts Metrics to the agent.EventBus Subscriber interface
// so a single metrics instance observes tool executions, loop detections,
// and task completions purely from the published event stream, without the
// registry or loop importing this package directly.
type EventSubscriber struct {
	metrics *Metrics
	started map[string]time.Time
}

// NewEventSubscriber builds a Subscriber backed by m.
func NewEventSubscriber(m *Metrics) *EventSubscriber {
	return &EventSubscriber{metrics: m, started: make(map[string]time.Time)}
}

// OnEvent implements agent.Subscriber.
func (s *EventSubscriber) OnEvent(_ context.Context, e models.AgentEvent) {
	switch e.Type {
	case models.EventToolExecutionStarted:
		if e.ToolExec != nil {
			s.started[e.ToolExec.ExecutionID] = e.Time
		}
	case models.EventToolExecutionFinished:
		if e.ToolExec == nil || e.ToolExec.Result == nil {
			return
		}
		start, ok := s.started[e.ToolExec.ExecutionID]
		delete(s.started, e.ToolExec.ExecutionID)
		var elapsed time.Duration
		if ok {
			elapsed = e.Time.Sub(start)
		} else {
			elapsed = time.Duration(e.ToolExec.Result.ExecutionTimeMs) * time.Millisecond
		}
		status := "success"
		if !e.ToolExec.Result.Success {
			status = "error"
			if e.ToolExec.Result.LoopInfo != nil && e.ToolExec.Result.LoopInfo.IsLoop {
				status = "loop_detected"
				s.metrics.ObserveLoopDetection(string(e.ToolExec.Result.LoopInfo.LoopType))
			}
		}
		s.metrics.ObserveToolExecution(e.ToolExec.ToolName, status, elapsed)
	case models.EventTaskCompleted:
		if e.Completion != nil {
			s.metrics.ObserveTaskIterations(e.Completion.Result.Iterations)
		}
	}
}
