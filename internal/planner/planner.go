// Package planner implements the one-shot planning call of spec.md §4.6:
// given the user's request, decide whether the task warrants a todo plan
// and, if so, propose the initial todos.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/reactorhq/agent/internal/agent"
	"github.com/reactorhq/agent/pkg/models"
)

var planningResponseSchema = json.RawMessage(`{
	"type": "object",
	"required": ["analysis", "approach", "todos", "needs_planning"],
	"properties": {
		"analysis": {"type": "string"},
		"approach": {"type": "string"},
		"needs_planning": {"type": "boolean"},
		"todos": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "priority"],
				"properties": {
					"title": {"type": "string"},
					"description": {"type": "string"},
					"priority": {"type": "string", "enum": ["high", "medium", "low"]},
					"estimated_effort": {"type": "integer"}
				}
			}
		}
	}
}`)

// Planner runs the single structured LLM call that decides whether a user
// request needs a todo plan before the main loop starts working on it.
type Planner struct {
	provider agent.LLMProvider
	logger   *slog.Logger
}

// New builds a Planner.
func New(provider agent.LLMProvider, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{provider: provider, logger: logger.With("component", "planner")}
}

// Plan asks the model whether query warrants a todo plan and, if so, what
// the initial todos should look like.
func (p *Planner) Plan(ctx context.Context, query string) (*models.PlanningResponse, error) {
	if p.provider == nil {
		return nil, fmt.Errorf("no llm provider configured for planning")
	}

	var response models.PlanningResponse
	err := p.provider.GenerateObject(ctx, agent.ObjectRequest{
		Messages: []models.Message{
			models.NewMessage(models.RoleSystem, planningPrompt()),
			models.NewMessage(models.RoleUser, query),
		},
		Schema:     planningResponseSchema,
		AllowTools: false,
	}, &response)
	if err != nil {
		return nil, fmt.Errorf("planning call failed: %w", err)
	}
	return &response, nil
}

func planningPrompt() string {
	return "Assess whether the following request benefits from an upfront todo plan. " +
		"Respond with analysis, approach, needs_planning, and, when needs_planning is true, " +
		"at least two concrete todos (title, description, priority, estimated_effort) ordered " +
		"the way you expect to tackle them."
}
