package agent

import (
	"context"
	"encoding/json"

	"github.com/reactorhq/agent/pkg/models"
)

// Tool is the capability-based contract every handler in the registry
// implements: validate, then invoke. Schema validation happens once in the
// dispatcher (§4.1 step 2); Invoke may assume args already matches Schema().
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Category() models.ToolCategory
	Permission() models.PermissionClass
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// DisplayTool is an optional extension a Tool may implement to control the
// ToolResult's DisplayTitle/DisplayDetails fields. Tools that don't implement
// it get a generic title derived from their name.
type DisplayTool interface {
	Tool
	Display(args json.RawMessage, result any, err error) (title, details string)
}
