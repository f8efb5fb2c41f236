// Package finish implements the finish tool: a catalog entry the model can
// call to signal it believes the task is done. The main loop's own
// termination path is the AgentResponse.Finished flag, not this tool, but
// the sub-agent protocol treats a dispatched call to "finish" as equivalent
// to completed=true, so the tool must exist in the registry with a stable
// schema for the model to reason about.
package finish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reactorhq/agent/pkg/models"
)

var schema = json.RawMessage(`{
	"type": "object",
	"required": ["result"],
	"properties": {
		"result": {"type": "string", "description": "The final result or summary to report."}
	}
}`)

// Tool echoes back the caller's declared result.
type Tool struct{}

// New builds the finish tool.
func New() *Tool { return &Tool{} }

func (t *Tool) Name() string { return "finish" }

func (t *Tool) Description() string {
	return "Signal that the task is complete and report the final result."
}

func (t *Tool) Schema() json.RawMessage { return schema }

func (t *Tool) Category() models.ToolCategory { return models.CategoryMeta }

func (t *Tool) Permission() models.PermissionClass { return models.PermissionReadOnly }

func (t *Tool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Result == "" {
		return nil, fmt.Errorf("result is required")
	}
	return input.Result, nil
}
