package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorhq/agent/pkg/models"
)

type stubProvider struct {
	generateObject func(ctx context.Context, req ObjectRequest, target any) error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	return "", nil
}

func (s *stubProvider) GenerateObject(ctx context.Context, req ObjectRequest, target any) error {
	return s.generateObject(ctx, req, target)
}

func historyOfLength(n int) []models.Message {
	msgs := make([]models.Message, n)
	for i := range msgs {
		msgs[i] = models.NewMessage(models.RoleUser, "message")
	}
	return msgs
}

func TestCompressor_BelowThreshold_DoesNotConsider(t *testing.T) {
	c := NewCompressor(&stubProvider{}, nil, nil)
	history := historyOfLength(19)
	out, decision, err := c.MaybeCompress(context.Background(), history)
	require.NoError(t, err)
	assert.Nil(t, decision)
	assert.Equal(t, history, out)
}

func TestCompressor_AtThreshold_ConsultsDecision(t *testing.T) {
	calls := 0
	provider := &stubProvider{generateObject: func(ctx context.Context, req ObjectRequest, target any) error {
		calls++
		dec := target.(*models.CompressionDecision)
		*dec = models.CompressionDecision{ShouldCompress: false, Reasoning: "not needed yet"}
		return nil
	}}
	c := NewCompressor(provider, nil, nil)
	history := historyOfLength(20)
	out, decision, err := c.MaybeCompress(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.NotNil(t, decision)
	assert.False(t, decision.ShouldCompress)
	assert.Equal(t, history, out)
}

func TestCompressor_ShouldCompress_ReplacesHistoryWithOneMessage(t *testing.T) {
	provider := &stubProvider{generateObject: func(ctx context.Context, req ObjectRequest, target any) error {
		switch v := target.(type) {
		case *models.CompressionDecision:
			*v = models.CompressionDecision{ShouldCompress: true}
		case *models.CompressionResult:
			*v = models.CompressionResult{
				OverallGoals:   "ship the feature",
				KeyKnowledge:   "uses postgres",
				FileChanges:    "auth.go",
				TaskProgress:   "halfway",
				RecentOutcomes: "tests passing",
				ContextQuality: models.QualityHigh,
			}
		}
		return nil
	}}
	c := NewCompressor(provider, nil, nil)
	history := historyOfLength(25)
	out, decision, err := c.MaybeCompress(context.Background(), history)
	require.NoError(t, err)
	require.NotNil(t, decision)
	require.Len(t, out, 1)
	assert.Equal(t, models.RoleUser, out[0].Role)

	var parsed models.CompressionResult
	payload := out[0].Content[len("[compressed message]\n"):]
	require.NoError(t, json.Unmarshal([]byte(payload), &parsed))
	assert.Equal(t, models.QualityHigh, parsed.ContextQuality)
}

func TestCompressor_DecisionCallFails_FallsBackOnLongHistory(t *testing.T) {
	provider := &stubProvider{generateObject: func(ctx context.Context, req ObjectRequest, target any) error {
		if _, ok := target.(*models.CompressionDecision); ok {
			return errors.New("provider unavailable")
		}
		*target.(*models.CompressionResult) = models.CompressionResult{ContextQuality: models.QualityLow}
		return nil
	}}
	c := NewCompressor(provider, nil, nil)
	history := historyOfLength(20)
	out, decision, err := c.MaybeCompress(context.Background(), history)
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.True(t, decision.ShouldCompress)
	assert.Len(t, out, 1)
}

func TestCompressor_DecisionCallFails_ShortHistoryLeavesUnchanged(t *testing.T) {
	provider := &stubProvider{generateObject: func(ctx context.Context, req ObjectRequest, target any) error {
		return errors.New("provider unavailable")
	}}
	cfg := DefaultCompressionConfig()
	cfg.HistoryLengthThreshold = 5
	c := NewCompressor(provider, cfg, nil)
	history := historyOfLength(10) // > threshold(5) to consider, but <= FallbackThreshold(15)
	out, decision, err := c.MaybeCompress(context.Background(), history)
	require.NoError(t, err)
	assert.Nil(t, decision)
	assert.Equal(t, history, out)
}
