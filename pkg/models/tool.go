package models

import "encoding/json"

// ToolCall is an action emitted by the LLM: a tool name plus its arguments.
// ExecutionID is assigned by the dispatcher when the LLM does not supply one.
type ToolCall struct {
	ToolName    string          `json:"tool_name"`
	Args        json.RawMessage `json:"args"`
	ExecutionID string          `json:"execution_id,omitempty"`
}

// ToolResult is the uniform envelope every tool invocation produces,
// successful or not. No ToolResult may escape the dispatcher without a
// Success field set.
type ToolResult struct {
	Success         bool                 `json:"success"`
	Data            any                  `json:"data,omitempty"`
	Error           string               `json:"error,omitempty"`
	DisplayTitle    string               `json:"display_title,omitempty"`
	DisplayDetails  string               `json:"display_details,omitempty"`
	ExecutionTimeMs int64                `json:"execution_time_ms"`
	ToolName        string               `json:"tool_name"`
	ExecutionID     string               `json:"execution_id"`
	LoopInfo        *LoopDetectionResult `json:"loop_info,omitempty"`
}

// ToolDefinition describes a tool as the registry sees it: enough to
// validate and dispatch a call without reaching into the handler.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
	Category    ToolCategory    `json:"category"`
	Permission  PermissionClass `json:"permission"`
}

// ToolCategory tags a tool's domain for timeout/config overrides.
type ToolCategory string

const (
	CategoryFile  ToolCategory = "file"
	CategoryShell ToolCategory = "shell"
	CategoryWeb   ToolCategory = "web"
	CategoryGit   ToolCategory = "git"
	CategoryPlan  ToolCategory = "plan"
	CategoryMeta  ToolCategory = "meta"
)

// PermissionClass drives whether HITL confirmation is required before the
// dispatcher invokes a handler.
type PermissionClass string

const (
	PermissionReadOnly   PermissionClass = "read_only"
	PermissionWriteFile  PermissionClass = "write_file"
	PermissionShellWrite PermissionClass = "shell_write"
	PermissionNetwork    PermissionClass = "network"
	PermissionMeta       PermissionClass = "meta"
)

// RequiresConfirmation reports whether calls of this permission class must
// be offered to the HITL component before the handler runs.
func (p PermissionClass) RequiresConfirmation() bool {
	switch p {
	case PermissionWriteFile, PermissionShellWrite, PermissionNetwork:
		return true
	default:
		return false
	}
}
