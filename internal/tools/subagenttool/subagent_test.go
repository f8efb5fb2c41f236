package subagenttool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorhq/agent/internal/agent"
	"github.com/reactorhq/agent/internal/agent/loopguard"
	"github.com/reactorhq/agent/pkg/models"
)

type scriptedProvider struct {
	responses []models.SubAgentResponse
	calls     int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) GenerateText(ctx context.Context, req agent.TextRequest) (string, error) {
	return "", nil
}

func (s *scriptedProvider) GenerateObject(ctx context.Context, req agent.ObjectRequest, target any) error {
	idx := s.calls
	s.calls++
	resp := target.(*models.SubAgentResponse)
	if idx >= len(s.responses) {
		*resp = models.SubAgentResponse{Completed: true, Output: "ran out of script"}
		return nil
	}
	*resp = s.responses[idx]
	return nil
}

func newRegistry(t *testing.T) *agent.ToolRegistry {
	t.Helper()
	return agent.NewToolRegistry(loopguard.New(nil), nil, agent.NewEventBus(), agent.DefaultLoopConfig(), nil)
}

func TestTool_RunsSubAgentAndReturnsResult(t *testing.T) {
	provider := &scriptedProvider{responses: []models.SubAgentResponse{
		{Reasoning: "done quickly", Completed: true, Output: "finished the sub-task"},
	}}
	registry := newRegistry(t)
	tool := New(provider, registry, nil, nil)

	raw, err := json.Marshal(map[string]any{"goal": "do a small thing"})
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), raw)
	require.NoError(t, err)
	result := out.(*models.SubAgentResult)
	assert.True(t, result.Success)
	assert.Equal(t, "finished the sub-task", result.Output)
}

func TestTool_MissingGoalErrors(t *testing.T) {
	tool := New(&scriptedProvider{}, newRegistry(t), nil, nil)
	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"goal":""}`))
	assert.Error(t, err)
}

func TestTool_OverridesMaxTurns(t *testing.T) {
	action := models.SubAgentResponse{Reasoning: "loop", Action: models.ToolCall{ToolName: "noop", Args: json.RawMessage(`{}`)}}
	provider := &scriptedProvider{responses: []models.SubAgentResponse{action, action, action, action, action}}
	registry := newRegistry(t)
	tool := New(provider, registry, nil, nil)

	raw, err := json.Marshal(map[string]any{"goal": "never finishes", "max_turns": 2})
	require.NoError(t, err)

	start := time.Now()
	out, err := tool.Invoke(context.Background(), raw)
	require.NoError(t, err)
	elapsed := time.Since(start)

	result := out.(*models.SubAgentResult)
	assert.False(t, result.Success)
	assert.Equal(t, models.TerminateMaxTurns, result.TerminateReason)
	assert.Equal(t, 2, result.Iterations)
	assert.Less(t, elapsed, 5*time.Second)
}
