package models

import "time"

// AgentEvent is the unified event the UI Event Emitter publishes. Exactly one
// payload field is populated for a given Type; the rest stay nil. Sequence is
// monotonic within a run and is the only ordering guarantee consumers get —
// events may be delivered to multiple subscribers, and subscribers must not
// assume delivery is synchronous with the loop iteration that produced them.
type AgentEvent struct {
	Type     AgentEventType `json:"type"`
	Time     time.Time      `json:"time"`
	Sequence uint64         `json:"seq"`

	Iteration int `json:"iteration,omitempty"`

	Thought      *ThoughtEventPayload      `json:"thought,omitempty"`
	Action       *ActionEventPayload       `json:"action,omitempty"`
	ToolExec     *ToolExecEventPayload     `json:"tool_exec,omitempty"`
	Observation  *ObservationEventPayload  `json:"observation,omitempty"`
	System       *SystemEventPayload       `json:"system,omitempty"`
	Confirmation *ConfirmationEventPayload `json:"confirmation,omitempty"`
	Completion   *CompletionEventPayload   `json:"completion,omitempty"`
}

// AgentEventType enumerates the lifecycle events the loop publishes.
type AgentEventType string

const (
	EventIterationStarted      AgentEventType = "iteration_started"
	EventThoughtGenerated      AgentEventType = "thought_generated"
	EventActionSelected        AgentEventType = "action_selected"
	EventToolExecutionStarted  AgentEventType = "tool_execution_started"
	EventToolExecutionFinished AgentEventType = "tool_execution_completed"
	EventObservationMade       AgentEventType = "observation_made"
	EventSystemInfo            AgentEventType = "system_info"
	EventConfirmationRequested AgentEventType = "confirmation_requested"
	EventConfirmationResolved  AgentEventType = "confirmation_resolved"
	EventTaskCompleted         AgentEventType = "task_completed"
)

// ThoughtEventPayload carries the reasoning text of one loop iteration.
type ThoughtEventPayload struct {
	Reasoning string `json:"reasoning"`
}

// ActionEventPayload announces the actions selected for this iteration,
// before dispatch begins.
type ActionEventPayload struct {
	Actions []ToolCall `json:"actions"`
}

// ToolExecEventPayload covers both tool_execution_started and
// tool_execution_completed; Result is nil on the started event.
type ToolExecEventPayload struct {
	ToolName    string      `json:"tool_name"`
	ExecutionID string      `json:"execution_id"`
	Args        interface{} `json:"args,omitempty"`
	Result      *ToolResult `json:"result,omitempty"`
}

// ObservationEventPayload carries the text appended to history after a tool
// call returns, as the loop's next observation.
type ObservationEventPayload struct {
	Content string `json:"content"`
}

// SystemEventPayload is a free-form informational event (compaction,
// sub-agent spawn, bridge connect/disconnect, and similar runtime notices).
type SystemEventPayload struct {
	Message string `json:"message"`
}

// ConfirmationEventPayload covers both confirmation_requested and
// confirmation_resolved; Decision is empty until resolved.
type ConfirmationEventPayload struct {
	ToolName    string `json:"tool_name"`
	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason,omitempty"`
	Decision    string `json:"decision,omitempty"`
}

// CompletionEventPayload carries the terminal TaskResult.
type CompletionEventPayload struct {
	Result TaskResult `json:"result"`
}
