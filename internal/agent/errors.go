package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for runtime-level failures.
var (
	ErrMaxIterations  = errors.New("max iterations exceeded")
	ErrCircuitBreaker = errors.New("circuit breaker tripped: consecutive iteration failures")
	ErrCancelled      = errors.New("task cancelled")
	ErrNoProvider     = errors.New("no llm provider configured")
	ErrToolNotFound   = errors.New("tool not registered")
	ErrToolTimeout    = errors.New("tool execution timed out")
	ErrToolPanic      = errors.New("tool panicked")
	ErrParseFailure   = errors.New("response did not parse into the expected shape")
)

// ToolErrorType categorizes a tool failure for retry logic and observation text.
type ToolErrorType string

const (
	ToolErrorNotFound      ToolErrorType = "not_found"
	ToolErrorInvalidInput  ToolErrorType = "invalid_input"
	ToolErrorTimeout       ToolErrorType = "timeout"
	ToolErrorNetwork       ToolErrorType = "network"
	ToolErrorPermission    ToolErrorType = "permission"
	ToolErrorRateLimit     ToolErrorType = "rate_limit"
	ToolErrorExecution     ToolErrorType = "execution"
	ToolErrorPanic         ToolErrorType = "panic"
	ToolErrorLoopDetected  ToolErrorType = "loop_detected"
	ToolErrorCancelled     ToolErrorType = "cancelled"
	ToolErrorUnknown       ToolErrorType = "unknown"
)

// IsRetryable reports whether a retry of the same call might succeed.
func (t ToolErrorType) IsRetryable() bool {
	switch t {
	case ToolErrorTimeout, ToolErrorNetwork, ToolErrorRateLimit:
		return true
	default:
		return false
	}
}

// ToolError is a structured, classified tool failure. The dispatcher never
// lets a bare error escape a handler boundary; every failure path constructs
// one of these before folding it into a models.ToolResult.
type ToolError struct {
	Type        ToolErrorType
	ToolName    string
	ExecutionID string
	Message     string
	Cause       error
	Retryable   bool
	Attempts    int
}

func (e *ToolError) Error() string {
	parts := []string{fmt.Sprintf("[tool:%s]", e.Type)}
	if e.ToolName != "" {
		parts = append(parts, e.ToolName)
	}
	switch {
	case e.Message != "":
		parts = append(parts, e.Message)
	case e.Cause != nil:
		parts = append(parts, e.Cause.Error())
	}
	if e.Attempts > 1 {
		parts = append(parts, fmt.Sprintf("(attempts=%d)", e.Attempts))
	}
	return strings.Join(parts, " ")
}

func (e *ToolError) Unwrap() error { return e.Cause }

// NewToolError builds a ToolError from an underlying cause, classifying it
// from the error's text when no sentinel match is found.
func NewToolError(toolName string, cause error) *ToolError {
	err := &ToolError{ToolName: toolName, Cause: cause, Type: ToolErrorUnknown, Attempts: 1}
	if cause != nil {
		err.Message = cause.Error()
		err.Type = classifyToolError(cause)
		err.Retryable = err.Type.IsRetryable()
	}
	return err
}

func (e *ToolError) WithType(t ToolErrorType) *ToolError {
	e.Type = t
	e.Retryable = t.IsRetryable()
	return e
}

func (e *ToolError) WithExecutionID(id string) *ToolError {
	e.ExecutionID = id
	return e
}

func (e *ToolError) WithMessage(msg string) *ToolError {
	e.Message = msg
	return e
}

func (e *ToolError) WithAttempts(n int) *ToolError {
	e.Attempts = n
	return e
}

func classifyToolError(err error) ToolErrorType {
	if err == nil {
		return ToolErrorUnknown
	}
	switch {
	case errors.Is(err, ErrToolNotFound):
		return ToolErrorNotFound
	case errors.Is(err, ErrToolTimeout):
		return ToolErrorTimeout
	case errors.Is(err, ErrToolPanic):
		return ToolErrorPanic
	case errors.Is(err, ErrCancelled):
		return ToolErrorCancelled
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "timeout"), strings.Contains(s, "deadline exceeded"):
		return ToolErrorTimeout
	case strings.Contains(s, "connection"), strings.Contains(s, "network"),
		strings.Contains(s, "dns"), strings.Contains(s, "refused"), strings.Contains(s, "unreachable"):
		return ToolErrorNetwork
	case strings.Contains(s, "rate limit"), strings.Contains(s, "rate_limit"), strings.Contains(s, "429"):
		return ToolErrorRateLimit
	case strings.Contains(s, "permission"), strings.Contains(s, "forbidden"), strings.Contains(s, "unauthorized"):
		return ToolErrorPermission
	case strings.Contains(s, "invalid"), strings.Contains(s, "validation"), strings.Contains(s, "required"), strings.Contains(s, "missing"):
		return ToolErrorInvalidInput
	default:
		return ToolErrorExecution
	}
}

// IsToolError reports whether err is or wraps a *ToolError.
func IsToolError(err error) bool {
	var toolErr *ToolError
	return errors.As(err, &toolErr)
}

// GetToolError extracts a *ToolError from an error chain.
func GetToolError(err error) (*ToolError, bool) {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// LoopError carries the loop phase and iteration an error occurred at, so the
// task summary can name where the run died.
type LoopError struct {
	Phase     LoopPhase
	Iteration int
	Message   string
	Cause     error
}

func (e *LoopError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("loop error at %s (iteration %d): %s", e.Phase, e.Iteration, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("loop error at %s (iteration %d): %v", e.Phase, e.Iteration, e.Cause)
	default:
		return fmt.Sprintf("loop error at %s (iteration %d)", e.Phase, e.Iteration)
	}
}

func (e *LoopError) Unwrap() error { return e.Cause }

// LoopPhase names a stage of one main-loop iteration, per spec.md §4.7.
type LoopPhase string

const (
	PhaseBuildPrompt LoopPhase = "build_prompt"
	PhaseRequest     LoopPhase = "request"
	PhaseParse       LoopPhase = "parse"
	PhaseDispatch    LoopPhase = "dispatch"
	PhaseCompress    LoopPhase = "compress"
	PhaseComplete    LoopPhase = "complete"
)
