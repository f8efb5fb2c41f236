// Package subagenttool exposes agent.SubAgent to the main loop as the
// start_subagent tool (spec.md §4.8): a scoped inner agent the top-level
// loop can delegate a sub-task to.
package subagenttool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/reactorhq/agent/internal/agent"
	"github.com/reactorhq/agent/pkg/models"
)

var schema = json.RawMessage(`{
	"type": "object",
	"required": ["goal"],
	"properties": {
		"goal": {"type": "string", "description": "The sub-task for the inner agent to accomplish."},
		"allowed_tools": {
			"type": "array",
			"items": {"type": "string"},
			"description": "Tool name patterns the sub-agent may use; empty means the full registry."
		},
		"max_turns": {"type": "integer", "minimum": 1, "description": "Override the sub-agent's turn cap."},
		"timeout_ms": {"type": "integer", "minimum": 1, "description": "Override the sub-agent's wall-clock budget."}
	}
}`)

// Tool wraps an agent.SubAgent factory as an agent.Tool. Each invocation
// constructs a fresh SubAgent so concurrent start_subagent calls don't share
// mutable run state.
type Tool struct {
	provider agent.LLMProvider
	registry *agent.ToolRegistry
	defaults *agent.SubAgentConfig
	logger   *slog.Logger
}

// New builds a start_subagent tool. defaults is used for any field the
// caller does not override; a nil defaults uses agent.DefaultSubAgentConfig.
func New(provider agent.LLMProvider, registry *agent.ToolRegistry, defaults *agent.SubAgentConfig, logger *slog.Logger) *Tool {
	if defaults == nil {
		defaults = agent.DefaultSubAgentConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{provider: provider, registry: registry, defaults: defaults, logger: logger}
}

func (t *Tool) Name() string { return "start_subagent" }

func (t *Tool) Description() string {
	return "Delegate a scoped sub-task to an inner agent with its own turn cap and timeout."
}

func (t *Tool) Schema() json.RawMessage { return schema }

func (t *Tool) Category() models.ToolCategory { return models.CategoryMeta }

func (t *Tool) Permission() models.PermissionClass { return models.PermissionMeta }

func (t *Tool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Goal         string   `json:"goal"`
		AllowedTools []string `json:"allowed_tools"`
		MaxTurns     int      `json:"max_turns"`
		TimeoutMs    int64    `json:"timeout_ms"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Goal == "" {
		return nil, fmt.Errorf("goal is required")
	}

	cfg := *t.defaults
	if input.MaxTurns > 0 {
		cfg.MaxTurns = input.MaxTurns
	}
	if input.TimeoutMs > 0 {
		cfg.Timeout = time.Duration(input.TimeoutMs) * time.Millisecond
	}
	if len(input.AllowedTools) > 0 {
		cfg.AllowedTools = input.AllowedTools
	}

	sub := agent.NewSubAgent(t.provider, t.registry, &cfg, t.logger)
	return sub.Run(ctx, input.Goal, cfg.AllowedTools), nil
}
