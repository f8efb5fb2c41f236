package todo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reactorhq/agent/pkg/models"
)

var managerSchema = json.RawMessage(`{
	"type": "object",
	"required": ["operation"],
	"properties": {
		"operation": {"type": "string", "enum": ["create_plan", "add_todo", "update_status", "get_next", "list", "clear"]},
		"todos": {"type": "array"},
		"title": {"type": "string"},
		"description": {"type": "string"},
		"priority": {"type": "string", "enum": ["high", "medium", "low"]},
		"estimated_effort": {"type": "integer"},
		"id": {"type": "string"},
		"status": {"type": "string", "enum": ["pending", "in_progress", "completed", "cancelled"]}
	}
}`)

// ManagerTool exposes the Store to the LLM as the single "todo_manager"
// tool, dispatching on an "operation" field (spec.md §4.5).
type ManagerTool struct {
	store TodoStore
}

// NewManagerTool wraps any TodoStore implementation.
func NewManagerTool(store TodoStore) *ManagerTool {
	return &ManagerTool{store: store}
}

func (t *ManagerTool) Name() string { return "todo_manager" }

func (t *ManagerTool) Description() string {
	return "Create, inspect, and update the task's todo plan: create_plan, add_todo, update_status, get_next, list, clear."
}

func (t *ManagerTool) Schema() json.RawMessage { return managerSchema }

func (t *ManagerTool) Category() models.ToolCategory { return models.CategoryPlan }

func (t *ManagerTool) Permission() models.PermissionClass { return models.PermissionReadOnly }

type managerArgs struct {
	Operation       string                `json:"operation"`
	Todos           []models.TodoItemInit `json:"todos"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Priority        models.TodoPriority   `json:"priority"`
	EstimatedEffort int                   `json:"estimated_effort"`
	ID              string                `json:"id"`
	Status          models.TodoStatus     `json:"status"`
}

func (t *ManagerTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var args managerArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid todo_manager args: %w", err)
	}

	switch args.Operation {
	case "create_plan":
		return t.store.CreatePlan(args.Todos), nil
	case "add_todo":
		return t.store.AddTodo(models.TodoItemInit{
			Title:           args.Title,
			Description:     args.Description,
			Priority:        args.Priority,
			EstimatedEffort: args.EstimatedEffort,
		}), nil
	case "update_status":
		if args.ID == "" {
			return nil, fmt.Errorf("update_status requires id")
		}
		return t.store.UpdateStatus(args.ID, args.Status)
	case "get_next":
		item, ok := t.store.GetNext()
		if !ok {
			return nil, nil
		}
		return item, nil
	case "list":
		return t.store.List(), nil
	case "clear":
		t.store.Clear()
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown todo_manager operation %q", args.Operation)
	}
}
