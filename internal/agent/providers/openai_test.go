package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorhq/agent/internal/agent"
	"github.com/reactorhq/agent/pkg/models"
)

func TestNewOpenAIProvider_NoAPIKey(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})
	assert.Equal(t, "openai", p.Name())

	_, err := p.GenerateText(context.Background(), agent.TextRequest{Prompt: "hi"})
	require.Error(t, err)

	var target map[string]any
	err = p.GenerateObject(context.Background(), agent.ObjectRequest{}, &target)
	require.Error(t, err)
}

func TestOpenAIConfig_Defaults(t *testing.T) {
	var cfg OpenAIConfig
	assert.NotEmpty(t, cfg.model())
	assert.Equal(t, 3, cfg.retries())
	assert.Greater(t, cfg.delay().Seconds(), 0.0)

	cfg = OpenAIConfig{DefaultModel: "gpt-4o-mini", MaxRetries: 5}
	assert.Equal(t, "gpt-4o-mini", cfg.model())
	assert.Equal(t, 5, cfg.retries())
}

func TestConvertMessages(t *testing.T) {
	msgs := []models.Message{
		models.NewMessage(models.RoleSystem, "be helpful"),
		models.NewMessage(models.RoleUser, "hello"),
		models.NewMessage(models.RoleAssistant, "hi there"),
	}
	out := convertMessages(msgs)
	require.Len(t, out, 3)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
	assert.Equal(t, "assistant", out[2].Role)
}

func TestExtractJSON_StripsSurroundingProse(t *testing.T) {
	raw := `Sure, here is the result: {"a": 1, "b": {"c": "}"}} Hope that helps!`
	got := extractJSON(raw)
	assert.Equal(t, `{"a": 1, "b": {"c": "}"}}`, got)
}

func TestExtractJSON_NoObjectFound(t *testing.T) {
	raw := "no json here"
	assert.Equal(t, raw, extractJSON(raw))
}

func TestConvertTools(t *testing.T) {
	defs := []models.ToolDefinition{
		{Name: "read_file", Description: "reads a file", InputSchema: []byte(`{"type":"object"}`)},
	}
	out := convertTools(defs)
	require.Len(t, out, 1)
	assert.Equal(t, "read_file", out[0].Function.Name)
}
