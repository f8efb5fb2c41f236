package context

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reactorhq/agent/pkg/models"
)

func TestNewWindowForModel_PrefixMatch(t *testing.T) {
	w := NewWindowForModel("gpt-4o-mini-2024-07-18")
	assert.Equal(t, 128000, w.Info().TotalTokens)
	assert.Equal(t, "model", w.Info().Source)
}

func TestNewWindowForModel_UnknownFallsBackToDefault(t *testing.T) {
	w := NewWindowForModel("some-unknown-model")
	assert.Equal(t, DefaultContextWindow, w.Info().TotalTokens)
	assert.Equal(t, "default", w.Info().Source)
}

func TestWindow_RemainingNeverNegative(t *testing.T) {
	w := NewWindow(100, "config")
	w.Add(500)
	assert.Equal(t, 0, w.Remaining())
}

func TestEstimateTokens_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
}

func TestEstimateTokens_NonEmptyFloorsAtOne(t *testing.T) {
	assert.GreaterOrEqual(t, EstimateTokens("a"), 1)
}

func TestEstimateTokensForMessages_IncludesOverhead(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "world"},
	}
	total := EstimateTokensForMessages(msgs)
	assert.Equal(t, EstimateTokens("hello")+EstimateTokens("world")+2*perMessageOverhead, total)
}
