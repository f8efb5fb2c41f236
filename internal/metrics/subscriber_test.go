package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/reactorhq/agent/pkg/models"
)

func TestEventSubscriber_ToolExecutionLifecycle(t *testing.T) {
	m := New(prometheus.NewRegistry())
	sub := NewEventSubscriber(m)

	sub.OnEvent(context.Background(), models.AgentEvent{
		Type:     models.EventToolExecutionStarted,
		ToolExec: &models.ToolExecEventPayload{ToolName: "write_file", ExecutionID: "exec-1"},
	})
	sub.OnEvent(context.Background(), models.AgentEvent{
		Type: models.EventToolExecutionFinished,
		ToolExec: &models.ToolExecEventPayload{
			ToolName:    "write_file",
			ExecutionID: "exec-1",
			Result:      &models.ToolResult{Success: true, ExecutionTimeMs: 12},
		},
	})
	require.NotContains(t, sub.started, "exec-1")
}

func TestEventSubscriber_LoopDetectionCountsAsLoopDetected(t *testing.T) {
	m := New(prometheus.NewRegistry())
	sub := NewEventSubscriber(m)

	sub.OnEvent(context.Background(), models.AgentEvent{
		Type: models.EventToolExecutionFinished,
		ToolExec: &models.ToolExecEventPayload{
			ToolName:    "run_command",
			ExecutionID: "exec-2",
			Result: &models.ToolResult{
				Success:  false,
				LoopInfo: &models.LoopDetectionResult{IsLoop: true, LoopType: models.LoopExactRepeat},
			},
		},
	})
}

func TestEventSubscriber_TaskCompletedRecordsIterations(t *testing.T) {
	m := New(prometheus.NewRegistry())
	sub := NewEventSubscriber(m)
	sub.OnEvent(context.Background(), models.AgentEvent{
		Type:       models.EventTaskCompleted,
		Completion: &models.CompletionEventPayload{Result: models.TaskResult{Iterations: 4}},
	})
}
