package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorhq/agent/internal/agent/loopguard"
	"github.com/reactorhq/agent/pkg/models"
)

type scriptedSubProvider struct {
	responses []models.SubAgentResponse
	delay     time.Duration
	calls     int
}

func (s *scriptedSubProvider) Name() string { return "scripted-sub" }

func (s *scriptedSubProvider) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	return "", nil
}

func (s *scriptedSubProvider) GenerateObject(ctx context.Context, req ObjectRequest, target any) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	idx := s.calls
	s.calls++
	resp, ok := target.(*models.SubAgentResponse)
	if !ok {
		return errors.New("unexpected target type")
	}
	if idx >= len(s.responses) {
		*resp = models.SubAgentResponse{Completed: true, Output: "ran out of script"}
		return nil
	}
	*resp = s.responses[idx]
	return nil
}

func newTestSubAgent(t *testing.T, provider LLMProvider, cfg *SubAgentConfig) (*SubAgent, *ToolRegistry) {
	t.Helper()
	registry := NewToolRegistry(loopguard.New(nil), nil, NewEventBus(), DefaultLoopConfig(), nil)
	return NewSubAgent(provider, registry, cfg, nil), registry
}

func TestSubAgent_FinishOnFirstTurn(t *testing.T) {
	provider := &scriptedSubProvider{responses: []models.SubAgentResponse{
		{Reasoning: "trivial", Completed: true, Output: "result text"},
	}}
	sub, _ := newTestSubAgent(t, provider, nil)
	result := sub.Run(context.Background(), "do something small", nil)
	require.True(t, result.Success)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, models.TerminateGoal, result.TerminateReason)
	assert.Equal(t, "result text", result.Output)
}

func TestSubAgent_FinishToolTerminatesAsGoal(t *testing.T) {
	provider := &scriptedSubProvider{responses: []models.SubAgentResponse{
		{Reasoning: "wrapping up", Action: models.ToolCall{ToolName: "finish"}},
	}}
	sub, _ := newTestSubAgent(t, provider, nil)
	result := sub.Run(context.Background(), "goal", nil)
	require.True(t, result.Success)
	assert.Equal(t, models.TerminateGoal, result.TerminateReason)
}

func TestSubAgent_DispatchesActionAndPreservesWriteInCriticalInfo(t *testing.T) {
	writeTool := &fakeTool{
		name:       "write_file",
		category:   models.CategoryFile,
		permission: models.PermissionReadOnly, // skip HITL path in this test
		schema:     json.RawMessage(`{"type":"object"}`),
		invoke:     func(ctx context.Context, args json.RawMessage) (any, error) { return "wrote 12 bytes", nil },
	}
	provider := &scriptedSubProvider{responses: []models.SubAgentResponse{
		{Reasoning: "write it", Action: models.ToolCall{ToolName: "write_file", Args: json.RawMessage(`{}`)}},
		{Reasoning: "done", Completed: true, Output: "wrote the file"},
	}}
	sub, registry := newTestSubAgent(t, provider, nil)
	require.NoError(t, registry.Register(writeTool))

	result := sub.Run(context.Background(), "write a file", nil)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Iterations)
	assert.Contains(t, result.CriticalInfo, "write_file")
}

func TestSubAgent_DisallowedToolIsRejectedWithoutDispatch(t *testing.T) {
	invoked := false
	shellTool := &fakeTool{
		name:       "shell_executor",
		category:   models.CategoryShell,
		permission: models.PermissionReadOnly,
		schema:     json.RawMessage(`{"type":"object"}`),
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			invoked = true
			return "ran", nil
		},
	}
	provider := &scriptedSubProvider{responses: []models.SubAgentResponse{
		{Reasoning: "try shell", Action: models.ToolCall{ToolName: "shell_executor", Args: json.RawMessage(`{}`)}},
		{Reasoning: "give up", Completed: true, Output: "could not proceed"},
	}}
	sub, registry := newTestSubAgent(t, provider, nil)
	require.NoError(t, registry.Register(shellTool))

	result := sub.Run(context.Background(), "goal", []string{"read_file"})
	require.True(t, result.Success)
	assert.False(t, invoked, "a tool outside allowed_tools must never reach the registry")
}

func TestSubAgent_MaxTurnsExceeded(t *testing.T) {
	action := models.SubAgentResponse{Reasoning: "keep going", Action: models.ToolCall{ToolName: "noop", Args: json.RawMessage(`{}`)}}
	responses := make([]models.SubAgentResponse, 0, 10)
	for i := 0; i < 10; i++ {
		responses = append(responses, action)
	}
	provider := &scriptedSubProvider{responses: responses}
	noop := &fakeTool{
		name:       "noop",
		category:   models.CategoryMeta,
		permission: models.PermissionReadOnly,
		schema:     json.RawMessage(`{"type":"object"}`),
		invoke:     func(ctx context.Context, args json.RawMessage) (any, error) { return "ok", nil },
	}
	cfg := DefaultSubAgentConfig()
	cfg.MaxTurns = 3
	sub, registry := newTestSubAgent(t, provider, cfg)
	require.NoError(t, registry.Register(noop))

	result := sub.Run(context.Background(), "never finishes", nil)
	require.False(t, result.Success)
	assert.Equal(t, models.TerminateMaxTurns, result.TerminateReason)
	assert.Equal(t, 3, result.Iterations)
}

func TestSubAgent_TimeoutTerminatesWithinBudget(t *testing.T) {
	provider := &scriptedSubProvider{delay: 500 * time.Millisecond}
	cfg := DefaultSubAgentConfig()
	cfg.Timeout = 100 * time.Millisecond
	sub, _ := newTestSubAgent(t, provider, cfg)

	start := time.Now()
	result := sub.Run(context.Background(), "slow goal", nil)
	elapsed := time.Since(start)

	require.False(t, result.Success)
	assert.Equal(t, models.TerminateTimeout, result.TerminateReason)
	assert.Less(t, elapsed, 700*time.Millisecond)
}
