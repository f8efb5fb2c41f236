package models

import "fmt"

// AgentResponse is the structured output of one main-loop LLM turn. The two
// shapes are mutually exclusive: either the model is still acting (Finished
// false, at least one action) or it is done (Finished true, no actions, a
// non-empty Result).
type AgentResponse struct {
	Reasoning string     `json:"reasoning"`
	Actions   []ToolCall `json:"actions"`
	Finished  bool       `json:"finished"`
	Result    string     `json:"result,omitempty"`
}

// Validate enforces the discriminated-union invariant from spec §3/§8:
// Finished == true iff Actions is empty and Result is non-empty.
func (r AgentResponse) Validate() error {
	if r.Finished {
		if len(r.Actions) != 0 {
			return fmt.Errorf("finished response must not carry actions, got %d", len(r.Actions))
		}
		if r.Result == "" {
			return fmt.Errorf("finished response must carry a non-empty result")
		}
		return nil
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("unfinished response must carry at least one action")
	}
	return nil
}

// SubAgentResponse is the structured output of one sub-agent turn.
type SubAgentResponse struct {
	Reasoning    string   `json:"reasoning"`
	Action       ToolCall `json:"action"`
	Completed    bool     `json:"completed"`
	Output       any      `json:"output,omitempty"`
	CriticalInfo string   `json:"critical_info,omitempty"`
}

// TerminateReason explains why a sub-agent run ended.
type TerminateReason string

const (
	TerminateGoal     TerminateReason = "GOAL"
	TerminateMaxTurns TerminateReason = "MAX_TURNS"
	TerminateTimeout  TerminateReason = "TIMEOUT"
	TerminateError    TerminateReason = "ERROR"
)

// SubAgentResult is what a sub-agent run returns to its caller.
type SubAgentResult struct {
	Success         bool            `json:"success"`
	Output          string          `json:"output,omitempty"`
	Iterations      int             `json:"iterations"`
	CriticalInfo    string          `json:"critical_info,omitempty"`
	TerminateReason TerminateReason `json:"terminate_reason"`
	Logs            []string        `json:"logs,omitempty"`
}

// ContextQuality is the Context Manager's self-assessed confidence in a
// compaction summary.
type ContextQuality string

const (
	QualityHigh   ContextQuality = "high"
	QualityMedium ContextQuality = "medium"
	QualityLow    ContextQuality = "low"
)

// CompressionResult is the structured summary that replaces conversation
// history during compaction.
type CompressionResult struct {
	OverallGoals   string         `json:"overall_goals"`
	KeyKnowledge   string         `json:"key_knowledge"`
	FileChanges    string         `json:"file_changes"`
	TaskProgress   string         `json:"task_progress"`
	RecentOutcomes string         `json:"recent_outcomes"`
	ContextQuality ContextQuality `json:"context_quality"`
}

// CompressionDecision is the fast structured call that decides whether a
// full compaction pass is worth running.
type CompressionDecision struct {
	ShouldCompress bool    `json:"should_compress"`
	Reasoning      string  `json:"reasoning"`
	Confidence     float64 `json:"confidence"`
}

// TaskResult is the terminal outcome of a main-loop run.
type TaskResult struct {
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Summary    string    `json:"summary"`
	History    []Message `json:"history"`
	Iterations int       `json:"iterations"`
	DurationMs int64     `json:"duration_ms"`
}
