package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/reactorhq/agent/internal/agent"
	"github.com/reactorhq/agent/pkg/models"
)

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int
	MaxRetries   int
	RetryDelay   time.Duration
}

func (c AnthropicConfig) model() string {
	if c.DefaultModel == "" {
		return "claude-sonnet-4-20250514"
	}
	return c.DefaultModel
}

func (c AnthropicConfig) maxTokens() int64 {
	if c.MaxTokens <= 0 {
		return 4096
	}
	return int64(c.MaxTokens)
}

func (c AnthropicConfig) retries() int {
	if c.MaxRetries <= 0 {
		return 3
	}
	return c.MaxRetries
}

func (c AnthropicConfig) delay() time.Duration {
	if c.RetryDelay <= 0 {
		return time.Second
	}
	return c.RetryDelay
}

// AnthropicProvider implements agent.LLMProvider against Claude's Messages API.
type AnthropicProvider struct {
	client sdk.Client
	cfg    AnthropicConfig
}

// NewAnthropicProvider builds an Anthropic-backed provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{client: sdk.NewClient(opts...), cfg: cfg}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) GenerateText(ctx context.Context, req agent.TextRequest) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.cfg.model()),
		MaxTokens: p.cfg.maxTokens(),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertAnthropicTools(req.Tools)
	}
	msg, err := p.createWithRetry(ctx, params)
	if err != nil {
		return "", err
	}
	return firstText(msg), nil
}

// GenerateObject asks Claude for structured JSON by instructing it in the
// system prompt to answer with exactly one JSON object and extracting the
// first balanced object from the response text (spec.md §6).
func (p *AnthropicProvider) GenerateObject(ctx context.Context, req agent.ObjectRequest, target any) error {
	msgs, system := splitSystem(req.Messages)
	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.cfg.model()),
		MaxTokens: p.cfg.maxTokens(),
		Messages:  msgs,
	}
	systemText := strings.Join(system, "\n\n")
	systemText = strings.TrimSpace(systemText + "\n\nRespond with exactly one JSON object and no surrounding prose.")
	params.System = []sdk.TextBlockParam{{Text: systemText}}

	msg, err := p.createWithRetry(ctx, params)
	if err != nil {
		return err
	}
	raw := extractJSON(firstText(msg))
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("anthropic: response did not match expected schema: %w", err)
	}
	return nil
}

func (p *AnthropicProvider) createWithRetry(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.retries(); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.cfg.delay() * time.Duration(attempt)):
			}
		}
		msg, err := p.client.Messages.New(ctx, params)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if !isRetryableAnthropicError(err) {
			return nil, fmt.Errorf("anthropic: non-retryable error: %w", err)
		}
	}
	return nil, fmt.Errorf("anthropic: max retries exceeded: %w", lastErr)
}

func isRetryableAnthropicError(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

func firstText(msg *sdk.Message) string {
	if msg == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// splitSystem pulls system-role messages out of the conversation (Anthropic
// carries system text as a top-level field, not a message role) and returns
// the remaining user/assistant turns converted to sdk.MessageParam.
func splitSystem(messages []models.Message) ([]sdk.MessageParam, []string) {
	var system []string
	var out []sdk.MessageParam
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, m.Content)
		case models.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	if len(out) == 0 {
		out = append(out, sdk.NewUserMessage(sdk.NewTextBlock("")))
	}
	return out, system
}

func convertAnthropicTools(tools []models.ToolDefinition) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema sdk.ToolInputSchemaParam
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
			continue
		}
		toolParam := sdk.ToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool != nil {
			toolParam.OfTool.Description = sdk.String(t.Description)
		}
		out = append(out, toolParam)
	}
	return out
}
