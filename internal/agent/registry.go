package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/reactorhq/agent/internal/agent/loopguard"
	"github.com/reactorhq/agent/pkg/models"
)

// ToolRegistry holds named, typed tool handles and implements the dispatch
// contract of spec.md §4.1: resolve, validate, loop-detect, confirm,
// timeout-bound invoke, recover, stamp, return. It is safe for concurrent
// use; a main loop and any sub-agents sharing it all dispatch through the
// same instance.
type ToolRegistry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema

	detector  *loopguard.Detector
	approvals *ApprovalChecker
	bus       *EventBus
	config    *LoopConfig
	logger    *slog.Logger
}

// NewToolRegistry builds an empty registry. A nil detector/approvals/bus/
// config falls back to permissive or default behavior so the registry works
// standalone in tests.
func NewToolRegistry(detector *loopguard.Detector, approvals *ApprovalChecker, bus *EventBus, config *LoopConfig, logger *slog.Logger) *ToolRegistry {
	if config == nil {
		config = DefaultLoopConfig()
	}
	if detector == nil {
		detector = loopguard.New(config.LoopGuardConfig)
	}
	if bus == nil {
		bus = NewEventBus()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolRegistry{
		tools:     make(map[string]Tool),
		schemas:   make(map[string]*jsonschema.Schema),
		detector:  detector,
		approvals: approvals,
		bus:       bus,
		config:    config,
		logger:    logger.With("component", "tool_registry"),
	}
}

// Register adds a tool, compiling its schema eagerly so a malformed schema
// fails at startup rather than on first dispatch. Replaces any existing tool
// of the same name.
func (r *ToolRegistry) Register(tool Tool) error {
	compiled, err := compileSchema(tool.Name(), tool.Schema())
	if err != nil {
		return fmt.Errorf("register tool %q: %w", tool.Name(), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	r.schemas[tool.Name()] = compiled
	return nil
}

// Unregister removes a tool by name.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schemas, name)
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns every registered tool's ToolDefinition, for handing to
// the LLM provider as its tool catalog.
func (r *ToolRegistry) Definitions() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]models.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, models.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
			Category:    t.Category(),
			Permission:  t.Permission(),
		})
	}
	return defs
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	compiler := jsonschema.NewCompiler()
	resourceName := "tool://" + name
	if err := compiler.AddResource(resourceName, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile(resourceName)
}

// Dispatch executes the seven-step contract of spec.md §4.1 for one action.
// It never returns a non-nil error for a tool-level failure; every failure
// mode is folded into the returned ToolResult's Success/Error fields so the
// caller always has a uniform envelope.
func (r *ToolRegistry) Dispatch(ctx context.Context, call models.ToolCall) *models.ToolResult {
	start := time.Now()
	if call.ExecutionID == "" {
		call.ExecutionID = uuid.NewString()
	}

	// Step 1: resolve.
	r.mu.RLock()
	tool, ok := r.tools[call.ToolName]
	schema := r.schemas[call.ToolName]
	r.mu.RUnlock()
	if !ok {
		return r.finish(call, false, nil, fmt.Sprintf("Tool not registered: %s", call.ToolName), nil, start)
	}

	// Step 2: schema validation.
	if err := validateArgs(schema, call.Args); err != nil {
		return r.finish(call, false, nil, err.Error(), nil, start)
	}

	// Step 3: loop detection.
	if loopResult := r.detector.Check(call.ToolName, call.Args); loopResult.IsLoop {
		return r.finish(call, false, nil, loopResult.Description, &loopResult, start)
	}

	// Step 4: HITL confirmation for write/shell/network classes.
	if tool.Permission().RequiresConfirmation() && r.approvals != nil {
		r.bus.Emit(ctx, models.AgentEvent{
			Type: models.EventConfirmationRequested,
			Confirmation: &models.ConfirmationEventPayload{
				ToolName: call.ToolName, ExecutionID: call.ExecutionID, Reason: "write/shell/network tool requires confirmation",
			},
		})
		decision, reason := r.approvals.Check(ctx, call)
		r.bus.Emit(ctx, models.AgentEvent{
			Type: models.EventConfirmationResolved,
			Confirmation: &models.ConfirmationEventPayload{
				ToolName: call.ToolName, ExecutionID: call.ExecutionID, Reason: reason, Decision: string(decision),
			},
		})
		if decision != ApprovalAllowed {
			return r.finish(call, false, nil, "cancelled by user", nil, start)
		}
	}

	// Step 5 + 6: timeout-bound invoke with panic recovery.
	r.bus.Emit(ctx, models.AgentEvent{
		Type:     models.EventToolExecutionStarted,
		ToolExec: toolExecPayload(call, nil),
	})

	spanCtx, span := startDispatchSpan(ctx, call.ToolName, call.ExecutionID)
	timeout := r.config.TimeoutFor(string(tool.Category()))
	data, invokeErr := r.invokeWithTimeout(spanCtx, tool, call.Args, timeout)
	endSpan(span, invokeErr)

	result := r.finish(call, invokeErr == nil, data, errMessage(invokeErr), nil, start)
	if dt, ok := tool.(DisplayTool); ok {
		result.DisplayTitle, result.DisplayDetails = dt.Display(call.Args, data, invokeErr)
	}

	r.bus.Emit(ctx, models.AgentEvent{
		Type:     models.EventToolExecutionFinished,
		ToolExec: toolExecPayload(call, result),
	})
	return result
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// toolExecPayload builds the ToolExec event payload; result is nil for the
// started event and populated for the completed event.
func toolExecPayload(call models.ToolCall, result *models.ToolResult) *models.ToolExecEventPayload {
	return &models.ToolExecEventPayload{
		ToolName:    call.ToolName,
		ExecutionID: call.ExecutionID,
		Args:        call.Args,
		Result:      result,
	}
}

func (r *ToolRegistry) invokeWithTimeout(ctx context.Context, tool Tool, args json.RawMessage, timeout time.Duration) (data any, err error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		data any
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{nil, NewToolError(tool.Name(), fmt.Errorf("%v", rec)).WithType(ToolErrorPanic)}
			}
		}()
		d, invokeErr := tool.Invoke(callCtx, args)
		done <- outcome{d, invokeErr}
	}()

	select {
	case o := <-done:
		return o.data, o.err
	case <-callCtx.Done():
		return nil, fmt.Errorf("timeout after %dms", timeout.Milliseconds())
	}
}

func (r *ToolRegistry) finish(call models.ToolCall, success bool, data any, errMsg string, loopInfo *models.LoopDetectionResult, start time.Time) *models.ToolResult {
	result := &models.ToolResult{
		Success:         success,
		Data:            data,
		Error:           errMsg,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		ToolName:        call.ToolName,
		ExecutionID:     call.ExecutionID,
		LoopInfo:        loopInfo,
	}
	result.DisplayTitle, result.DisplayDetails = displayFor(call.ToolName, result)
	return result
}

func displayFor(toolName string, result *models.ToolResult) (title, details string) {
	if result.Success {
		return toolName, ""
	}
	return fmt.Sprintf("%s failed", toolName), result.Error
}

func validateArgs(schema *jsonschema.Schema, args json.RawMessage) error {
	if schema == nil {
		return nil
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var doc any
	if err := json.Unmarshal(args, &doc); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("argument validation failed: %w", err)
	}
	return nil
}

// MatchesPattern supports the registry's pattern vocabulary: exact match,
// "prefix*", "*suffix", "*", and the external-bridge "mcp:*" convention.
func MatchesPattern(patterns []string, name string) bool {
	for _, p := range patterns {
		if matchOnePattern(p, name) {
			return true
		}
	}
	return false
}

func matchOnePattern(pattern, name string) bool {
	if pattern == "" || name == "" {
		return false
	}
	if pattern == "*" || pattern == name {
		return true
	}
	if pattern == "mcp:*" {
		return strings.HasPrefix(name, "mcp:")
	}
	if strings.HasSuffix(pattern, ".*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(name, strings.TrimPrefix(pattern, "*"))
	}
	return false
}
