package agent

import (
	"context"
	"encoding/json"

	"github.com/reactorhq/agent/pkg/models"
)

// LLMProvider is the external language-model collaborator (spec.md §1 "Out
// of scope" / §6 "Language-model client contract (consumed)"). The core
// never imports a concrete provider package directly; callers wire a
// provider implementation (OpenAI, Anthropic, ...) in behind this interface.
type LLMProvider interface {
	Name() string

	// GenerateText produces free text for a system+prompt pair, optionally
	// aware of the tool catalog for tool-use-capable models.
	GenerateText(ctx context.Context, req TextRequest) (string, error)

	// GenerateObject produces a structured response. target is a pointer
	// the provider unmarshals its JSON object output into; output that does
	// not decode into target is an error to the caller. The OpenAI and
	// Anthropic providers in internal/agent/providers do not check the
	// output against req.Schema.
	GenerateObject(ctx context.Context, req ObjectRequest, target any) error
}

// TextRequest is the input to LLMProvider.GenerateText.
type TextRequest struct {
	System      string
	Prompt      string
	Tools       []models.ToolDefinition
	MaxTokens   int
	Temperature float64
}

// ObjectRequest is the input to LLMProvider.GenerateObject.
type ObjectRequest struct {
	Messages   []models.Message
	Schema     json.RawMessage
	AllowTools bool
}
