package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reactorhq/agent/pkg/models"
)

// SubAgent runs a scoped inner agent spawned by the start_subagent tool
// (spec.md §4.8). It shares the parent's Tool Registry but may be limited to
// an allowed_tools subset, and carries its own turn cap and wall-clock
// timeout independent of the parent loop's.
type SubAgent struct {
	provider LLMProvider
	registry *ToolRegistry
	config   *SubAgentConfig
	logger   *slog.Logger
}

// NewSubAgent builds a SubAgent. A nil config uses DefaultSubAgentConfig.
func NewSubAgent(provider LLMProvider, registry *ToolRegistry, config *SubAgentConfig, logger *slog.Logger) *SubAgent {
	config = sanitizeSubAgentConfig(config)
	if logger == nil {
		logger = slog.Default()
	}
	return &SubAgent{
		provider: provider,
		registry: registry,
		config:   config,
		logger:   logger.With("component", "subagent"),
	}
}

// Run drives the sub-agent to completion, always returning a non-nil
// SubAgentResult. allowedTools, when non-empty, restricts which tool names
// this run may dispatch; a call to a tool outside the subset is rejected as
// a validation error without reaching the registry.
func (s *SubAgent) Run(ctx context.Context, goal string, allowedTools []string) *models.SubAgentResult {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	history := []models.Message{}
	observation := goal
	var logs []string
	var criticalInfo []string

	for turn := 1; turn <= s.config.MaxTurns; turn++ {
		if err := runCtx.Err(); err != nil {
			reason := models.TerminateTimeout
			if ctx.Err() != nil {
				reason = models.TerminateError
			}
			return s.finish(false, "", turn-1, criticalInfo, reason, logs)
		}

		messages := buildMessages("", history, observation)
		response, err := s.requestResponse(runCtx, messages)
		if err != nil {
			reason := models.TerminateError
			if runCtx.Err() != nil && ctx.Err() == nil {
				reason = models.TerminateTimeout
			}
			logs = append(logs, fmt.Sprintf("turn %d: llm request failed: %v", turn, err))
			return s.finish(false, "", turn, criticalInfo, reason, logs)
		}

		parsed, perr := parseSubAgentResponse(response)
		if perr != nil {
			observation = fmt.Sprintf("Your last response did not parse: %v. Respond with a single action or completed result.", perr)
			history = appendTurn(history, observation, response)
			logs = append(logs, fmt.Sprintf("turn %d: parse failure: %v", turn, perr))
			continue
		}

		if parsed.Completed || parsed.Action.ToolName == "finish" {
			if parsed.CriticalInfo != "" {
				criticalInfo = append(criticalInfo, parsed.CriticalInfo)
			}
			output := outputToString(parsed.Output)
			return s.finish(true, output, turn, criticalInfo, models.TerminateGoal, logs)
		}

		if len(allowedTools) > 0 && !MatchesPattern(allowedTools, parsed.Action.ToolName) {
			observation = fmt.Sprintf("tool %q is not in this sub-agent's allowed_tools", parsed.Action.ToolName)
			history = appendTurn(history, observation, response)
			logs = append(logs, fmt.Sprintf("turn %d: rejected disallowed tool %q", turn, parsed.Action.ToolName))
			continue
		}

		result := s.registry.Dispatch(runCtx, parsed.Action)
		observation = summarizeObservation(parsed.Action, result)

		if preserved, ok := autoPreserve(parsed.Action, result); ok {
			criticalInfo = append(criticalInfo, preserved)
		}
		if parsed.CriticalInfo != "" {
			criticalInfo = append(criticalInfo, parsed.CriticalInfo)
		}
		logs = append(logs, fmt.Sprintf("turn %d: %s", turn, observation))

		history = appendTurn(history, observation, response)
	}

	return s.finish(false, "", s.config.MaxTurns, criticalInfo, models.TerminateMaxTurns, logs)
}

func (s *SubAgent) requestResponse(ctx context.Context, messages []models.Message) (string, error) {
	if s.provider == nil {
		return "", ErrNoProvider
	}
	var response models.SubAgentResponse
	err := s.provider.GenerateObject(ctx, ObjectRequest{
		Messages:   messages,
		AllowTools: true,
	}, &response)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(response)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func parseSubAgentResponse(raw string) (*models.SubAgentResponse, error) {
	var response models.SubAgentResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if !response.Completed && response.Action.ToolName == "" {
		return nil, fmt.Errorf("%w: response is neither completed nor carries an action", ErrParseFailure)
	}
	return &response, nil
}

// autoPreserve implements the spec's default critical_info rule: write
// operations and tool errors are always preserved, read-only successes are
// not unless the inner agent explicitly marks them.
func autoPreserve(call models.ToolCall, result *models.ToolResult) (string, bool) {
	if !result.Success {
		return fmt.Sprintf("error from %s: %s", call.ToolName, result.Error), true
	}
	if isWriteLike(call.ToolName) {
		return fmt.Sprintf("write via %s: %v", call.ToolName, result.Data), true
	}
	return "", false
}

func isWriteLike(toolName string) bool {
	lower := strings.ToLower(toolName)
	for _, marker := range []string{"write", "patch", "apply", "delete", "shell", "commit", "push"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func outputToString(output any) string {
	switch v := output.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

func (s *SubAgent) finish(success bool, output string, iterations int, criticalInfo []string, reason models.TerminateReason, logs []string) *models.SubAgentResult {
	return &models.SubAgentResult{
		Success:         success,
		Output:          output,
		Iterations:      iterations,
		CriticalInfo:    strings.Join(criticalInfo, "\n"),
		TerminateReason: reason,
		Logs:            logs,
	}
}
