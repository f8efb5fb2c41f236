package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorhq/agent/internal/agent/loopguard"
	"github.com/reactorhq/agent/pkg/models"
)

type scriptedProvider struct {
	responses []models.AgentResponse
	errs      []error
	calls     int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	return "", nil
}

func (s *scriptedProvider) GenerateObject(ctx context.Context, req ObjectRequest, target any) error {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return s.errs[idx]
	}
	resp, ok := target.(*models.AgentResponse)
	if !ok {
		return errors.New("unexpected target type in test provider")
	}
	if idx >= len(s.responses) {
		*resp = models.AgentResponse{Finished: true, Result: "ran out of script"}
		return nil
	}
	*resp = s.responses[idx]
	return nil
}

func newTestLoop(t *testing.T, provider LLMProvider) (*Loop, *ToolRegistry) {
	t.Helper()
	registry := NewToolRegistry(loopguard.New(nil), nil, NewEventBus(), DefaultLoopConfig(), nil)
	loop := NewLoop(provider, registry, NewCompressor(provider, nil, nil), NewEventBus(), DefaultLoopConfig(), nil)
	return loop, registry
}

func TestLoop_FinishesImmediately(t *testing.T) {
	provider := &scriptedProvider{
		responses: []models.AgentResponse{
			{Reasoning: "trivial task", Finished: true, Result: "done"},
		},
	}
	loop, _ := newTestLoop(t, provider)
	result := loop.Run(context.Background(), "say hello", ModeNormal)
	require.True(t, result.Success)
	assert.Equal(t, "done", result.Summary)
	assert.Equal(t, 1, result.Iterations)
}

func TestLoop_DispatchesActionThenFinishes(t *testing.T) {
	echo := &fakeTool{
		name:       "echo",
		category:   models.CategoryMeta,
		permission: models.PermissionReadOnly,
		schema:     json.RawMessage(`{"type":"object"}`),
		invoke:     func(ctx context.Context, args json.RawMessage) (any, error) { return "echoed", nil },
	}
	provider := &scriptedProvider{
		responses: []models.AgentResponse{
			{Reasoning: "need to echo", Actions: []models.ToolCall{{ToolName: "echo", Args: json.RawMessage(`{}`)}}},
			{Reasoning: "done now", Finished: true, Result: "all good"},
		},
	}
	loop, registry := newTestLoop(t, provider)
	require.NoError(t, registry.Register(echo))

	result := loop.Run(context.Background(), "echo something", ModeNormal)
	require.True(t, result.Success)
	assert.Equal(t, "all good", result.Summary)
	assert.Equal(t, 2, result.Iterations)
	require.Len(t, result.History, 4)
}

func TestLoop_ParseFailure_RetriesWithErrorObservation(t *testing.T) {
	provider := &scriptedProvider{}
	provider.responses = nil
	loop, _ := newTestLoop(t, provider)

	// First GenerateObject call will be served by the default "ran out of
	// script" fallback, which always parses; to exercise the parse-failure
	// branch we instead provide a response that fails Validate (actions
	// present but Finished also true), by reaching into the provider.
	provider.responses = []models.AgentResponse{
		{Finished: true, Actions: []models.ToolCall{{ToolName: "x"}}}, // invalid: finished with actions
		{Finished: true, Result: "recovered"},
	}
	result := loop.Run(context.Background(), "do something ambiguous", ModeNormal)
	require.True(t, result.Success)
	assert.Equal(t, "recovered", result.Summary)
	assert.Equal(t, 2, result.Iterations)
}

func TestLoop_CircuitBreakerTripsAfterConsecutiveFailedIterations(t *testing.T) {
	failing := &fakeTool{
		name:       "flaky",
		category:   models.CategoryMeta,
		permission: models.PermissionReadOnly,
		schema:     json.RawMessage(`{"type":"object"}`),
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("boom")
		},
	}
	action := models.AgentResponse{Reasoning: "try again", Actions: []models.ToolCall{{ToolName: "flaky", Args: json.RawMessage(`{}`)}}}
	provider := &scriptedProvider{responses: []models.AgentResponse{action, action, action}}
	loop, registry := newTestLoop(t, provider)
	require.NoError(t, registry.Register(failing))

	result := loop.Run(context.Background(), "keep trying", ModeNormal)
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "circuit breaker")
	assert.Equal(t, 2, result.Iterations, "breaker trips on the second consecutive all-failing iteration")
}

func TestLoop_MaxIterationsExceeded(t *testing.T) {
	ok := &fakeTool{
		name:       "noop",
		category:   models.CategoryMeta,
		permission: models.PermissionReadOnly,
		schema:     json.RawMessage(`{"type":"object"}`),
		invoke:     func(ctx context.Context, args json.RawMessage) (any, error) { return "ok", nil },
	}
	action := models.AgentResponse{Reasoning: "still working", Actions: []models.ToolCall{{ToolName: "noop", Args: json.RawMessage(`{}`)}}}
	responses := make([]models.AgentResponse, 0, 20)
	for i := 0; i < 20; i++ {
		responses = append(responses, action)
	}
	provider := &scriptedProvider{responses: responses}

	registry := NewToolRegistry(loopguard.New(nil), nil, NewEventBus(), DefaultLoopConfig(), nil)
	require.NoError(t, registry.Register(ok))
	cfg := DefaultLoopConfig()
	cfg.MaxIterations = 3
	cfg.ConsecutiveFailureLimit = 100
	loop := NewLoop(provider, registry, NewCompressor(provider, nil, nil), NewEventBus(), cfg, nil)

	result := loop.Run(context.Background(), "never finishes", ModeNormal)
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "max iterations")
	assert.Equal(t, 3, result.Iterations)
}

func TestLoop_CancelledContextTerminatesEarly(t *testing.T) {
	provider := &scriptedProvider{}
	loop, _ := newTestLoop(t, provider)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := loop.Run(ctx, "anything", ModeNormal)
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "cancelled")
}
