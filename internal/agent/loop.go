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

// RunMode selects which system prompt the loop builds its first message
// with (spec.md §4.7 "system prompt selected by mode").
type RunMode string

const (
	ModeNormal RunMode = "normal"
	ModePlan   RunMode = "plan"
)

// Loop implements the Main Agent Loop of spec.md §4.7: a sequential,
// single-threaded cooperative state machine that alternates LLM turns with
// Registry dispatches, one action at a time, until the model reports
// finished or a termination condition trips.
type Loop struct {
	provider LLMProvider
	registry *ToolRegistry
	compress *Compressor
	bus      *EventBus
	config   *LoopConfig
	logger   *slog.Logger
}

// NewLoop builds a Loop. A nil config uses DefaultLoopConfig.
func NewLoop(provider LLMProvider, registry *ToolRegistry, compress *Compressor, bus *EventBus, config *LoopConfig, logger *slog.Logger) *Loop {
	config = sanitizeLoopConfig(config)
	if bus == nil {
		bus = NewEventBus()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		provider: provider,
		registry: registry,
		compress: compress,
		bus:      bus,
		config:   config,
		logger:   logger.With("component", "loop"),
	}
}

// Run drives one task to completion or termination, returning a TaskResult
// that is always non-nil. It never returns a bare Go error to the caller;
// every failure mode (provider error, circuit breaker, iteration cap,
// cancellation) is recorded in the result instead. A response that fails to
// parse is fed back as the next observation; consecutive parse failures end
// the run only through the iteration cap.
func (l *Loop) Run(ctx context.Context, query string, mode RunMode) *models.TaskResult {
	start := time.Now()
	systemPrompt := l.config.SystemPromptNormal
	if mode == ModePlan {
		systemPrompt = l.config.SystemPromptPlan
	}

	history := []models.Message{}
	observation := query
	consecutiveFailedIterations := 0

	for iteration := 1; iteration <= l.config.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return l.terminate(history, iteration, start, false, fmt.Sprintf("task cancelled: %v", err))
		}

		l.bus.Emit(ctx, models.AgentEvent{
			Type:      models.EventIterationStarted,
			Iteration: iteration,
		})

		spanCtx, span := startIterationSpan(ctx, iteration)
		messages := buildMessages(systemPrompt, history, observation)

		response, err := l.requestResponse(spanCtx, messages)
		endSpan(span, err)
		if err != nil {
			// Unrecoverable: the provider itself failed, not a parse issue.
			return l.terminate(history, iteration, start, false, fmt.Sprintf("llm request failed: %v", err))
		}

		parsed, perr := parseAgentResponse(response)
		if perr != nil {
			observation = fmt.Sprintf("Your last response did not parse: %v. Respond with a valid structured action or finished result.", perr)
			history = appendTurn(history, observation, response)
			continue
		}

		l.bus.Emit(ctx, models.AgentEvent{
			Type:      models.EventThoughtGenerated,
			Iteration: iteration,
			Thought:   &models.ThoughtEventPayload{Reasoning: parsed.Reasoning},
		})

		if parsed.Finished {
			l.bus.Emit(ctx, models.AgentEvent{
				Type:       models.EventTaskCompleted,
				Iteration:  iteration,
				Completion: &models.CompletionEventPayload{Result: models.TaskResult{Success: true, Summary: parsed.Result, Iterations: iteration}},
			})
			history = appendTurn(history, observation, response)
			return l.terminate(history, iteration, start, true, parsed.Result)
		}

		l.bus.Emit(ctx, models.AgentEvent{
			Type:      models.EventActionSelected,
			Iteration: iteration,
			Action:    &models.ActionEventPayload{Actions: parsed.Actions},
		})

		obsLines := make([]string, 0, len(parsed.Actions))
		allFailed := true
		for _, call := range parsed.Actions {
			result := l.registry.Dispatch(ctx, call)
			obsLines = append(obsLines, summarizeObservation(call, result))
			if result.Success {
				allFailed = false
			}
			l.bus.Emit(ctx, models.AgentEvent{
				Type:        models.EventObservationMade,
				Iteration:   iteration,
				Observation: &models.ObservationEventPayload{Content: obsLines[len(obsLines)-1]},
			})
		}

		if allFailed {
			consecutiveFailedIterations++
		} else {
			consecutiveFailedIterations = 0
		}
		if consecutiveFailedIterations >= l.config.ConsecutiveFailureLimit {
			history = appendTurn(history, observation, response)
			return l.terminate(history, iteration, start, false, "circuit breaker tripped: consecutive iterations with every action failing")
		}

		observation = strings.Join(obsLines, "; ")
		history = appendTurn(history, observation, response)

		if l.compress != nil {
			compacted, _, cErr := l.compress.MaybeCompress(ctx, history)
			if cErr != nil {
				l.logger.Warn("compression pass failed, continuing with uncompacted history", "error", cErr)
			} else {
				history = compacted
			}
		}
	}

	return l.terminate(history, l.config.MaxIterations, start, false, "max iterations exceeded")
}

func (l *Loop) requestResponse(ctx context.Context, messages []models.Message) (string, error) {
	if l.provider == nil {
		return "", ErrNoProvider
	}
	var response models.AgentResponse
	err := l.provider.GenerateObject(ctx, ObjectRequest{
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

// buildMessages assembles the per-iteration prompt: system prompt, the
// accumulated history, and the current observation as the newest user turn
// (spec.md §4.7 step 1).
func buildMessages(systemPrompt string, history []models.Message, observation string) []models.Message {
	messages := make([]models.Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, models.NewMessage(models.RoleSystem, systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, models.NewMessage(models.RoleUser, "Current observation: "+observation))
	return messages
}

// parseAgentResponse unmarshals and validates a structured AgentResponse;
// the returned error is the observation fed back on the next iteration.
func parseAgentResponse(raw string) (*models.AgentResponse, error) {
	var response models.AgentResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if err := response.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return &response, nil
}

// appendTurn records an observation and a raw response as a user/assistant
// pair, per spec.md §4.7 step 7. The observation is whatever the caller
// passes: on the action and parse-failure paths it is the new observation
// produced from that response, on the finished and circuit-breaker paths it
// is the observation the response answered.
func appendTurn(history []models.Message, observation, rawResponse string) []models.Message {
	history = append(history, models.NewMessage(models.RoleUser, "Observation: "+observation))
	history = append(history, models.NewMessage(models.RoleAssistant, rawResponse))
	return history
}

func summarizeObservation(call models.ToolCall, result *models.ToolResult) string {
	if result.Success {
		return fmt.Sprintf("(%s, ok)", call.ToolName)
	}
	return fmt.Sprintf("(%s, error: %s)", call.ToolName, result.Error)
}

func (l *Loop) terminate(history []models.Message, iteration int, start time.Time, success bool, summary string) *models.TaskResult {
	result := &models.TaskResult{
		Success:    success,
		Summary:    summary,
		History:    history,
		Iterations: iteration,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if !success {
		result.Error = summary
	}
	return result
}
