// Package providers implements the concrete agent.LLMProvider adapters the
// runtime wires in behind the interface: OpenAI's chat-completions API and
// Anthropic's messages API. Grounded on the teacher's
// internal/agent/providers/{openai,anthropic}.go, trimmed from streaming
// completion to the two non-streaming calls the core loop actually needs
// (GenerateText, GenerateObject) and with retry/backoff kept in the same
// shape.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/reactorhq/agent/internal/agent"
	"github.com/reactorhq/agent/pkg/models"
)

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

func (c OpenAIConfig) model() string {
	if c.DefaultModel == "" {
		return openai.GPT4o
	}
	return c.DefaultModel
}

func (c OpenAIConfig) retries() int {
	if c.MaxRetries <= 0 {
		return 3
	}
	return c.MaxRetries
}

func (c OpenAIConfig) delay() time.Duration {
	if c.RetryDelay <= 0 {
		return time.Second
	}
	return c.RetryDelay
}

// OpenAIProvider implements agent.LLMProvider against the OpenAI API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIProvider builds an OpenAI-backed provider. A nil client is
// legal for tests that never call through.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.APIKey == "" {
		return &OpenAIProvider{cfg: cfg}
	}
	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(oaiCfg), cfg: cfg}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) GenerateText(ctx context.Context, req agent.TextRequest) (string, error) {
	if p.client == nil {
		return "", errors.New("openai: API key not configured")
	}
	chatReq := openai.ChatCompletionRequest{
		Model: p.cfg.model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
	}
	resp, err := p.createWithRetry(ctx, chatReq)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateObject asks for strict JSON output via OpenAI's json_object
// response format and unmarshals the result into target. This is the
// structured-output path the main loop and planner depend on (spec.md §6).
func (p *OpenAIProvider) GenerateObject(ctx context.Context, req agent.ObjectRequest, target any) error {
	if p.client == nil {
		return errors.New("openai: API key not configured")
	}
	messages := convertMessages(req.Messages)
	chatReq := openai.ChatCompletionRequest{
		Model:          p.cfg.model(),
		Messages:       messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	resp, err := p.createWithRetry(ctx, chatReq)
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return errors.New("openai: empty response")
	}
	raw := extractJSON(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("openai: response did not match expected schema: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) createWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.retries(); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(p.cfg.delay() * time.Duration(attempt)):
			}
		}
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryableOpenAIError(err) {
			return openai.ChatCompletionResponse{}, fmt.Errorf("openai: non-retryable error: %w", err)
		}
	}
	return openai.ChatCompletionResponse{}, fmt.Errorf("openai: max retries exceeded: %w", lastErr)
}

func isRetryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return false
}

func convertMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case models.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case models.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func convertTools(tools []models.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		var params map[string]any
		_ = json.Unmarshal(t.InputSchema, &params)
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// extractJSON tolerates surrounding prose by extracting the first balanced
// JSON object, per spec.md §6 ("must tolerate surrounding prose").
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
