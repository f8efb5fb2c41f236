package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	agentctx "github.com/reactorhq/agent/internal/agent/context"
	"github.com/reactorhq/agent/pkg/models"
)

// CompressionConfig governs when the Context/Token Manager compresses
// history (spec.md §4.4) and the fallback it falls back to when the decision
// call itself fails.
type CompressionConfig struct {
	// HistoryLengthThreshold triggers a compression decision call once the
	// history reaches this many messages. Default: 20.
	HistoryLengthThreshold int

	// FallbackThreshold is used when the decision call errors: compress
	// unconditionally once history exceeds this length. Default: 15.
	FallbackThreshold int

	// TokenBudget, if non-zero, also triggers a decision call once the
	// estimated token usage reaches it, independent of message count.
	TokenBudget int
}

// DefaultCompressionConfig returns the spec-mandated defaults.
func DefaultCompressionConfig() *CompressionConfig {
	return &CompressionConfig{
		HistoryLengthThreshold: 20,
		FallbackThreshold:      15,
	}
}

var compressionDecisionSchema = json.RawMessage(`{
	"type": "object",
	"required": ["should_compress", "reasoning", "confidence"],
	"properties": {
		"should_compress": {"type": "boolean"},
		"reasoning": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`)

var compressionResultSchema = json.RawMessage(`{
	"type": "object",
	"required": ["overall_goals", "key_knowledge", "file_changes", "task_progress", "recent_outcomes", "context_quality"],
	"properties": {
		"overall_goals": {"type": "string"},
		"key_knowledge": {"type": "string"},
		"file_changes": {"type": "string"},
		"task_progress": {"type": "string"},
		"recent_outcomes": {"type": "string"},
		"context_quality": {"type": "string", "enum": ["high", "medium", "low"]}
	}
}`)

// Compressor implements the Context/Token Manager's compression decision and
// compression operation. It is stateless between calls; the Main Agent Loop
// owns the history it operates on.
type Compressor struct {
	cfg      *CompressionConfig
	provider LLMProvider
	logger   *slog.Logger
}

// NewCompressor builds a Compressor. A nil config uses DefaultCompressionConfig.
func NewCompressor(provider LLMProvider, cfg *CompressionConfig, logger *slog.Logger) *Compressor {
	if cfg == nil {
		cfg = DefaultCompressionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compressor{cfg: cfg, provider: provider, logger: logger.With("component", "compressor")}
}

// ShouldConsider reports whether history has grown enough to warrant asking
// the decision call at all, short-circuiting the LLM round trip otherwise.
func (c *Compressor) ShouldConsider(history []models.Message) bool {
	if len(history) >= c.cfg.HistoryLengthThreshold {
		return true
	}
	if c.cfg.TokenBudget > 0 && agentctx.EstimateTokensForMessages(history) >= c.cfg.TokenBudget {
		return true
	}
	return false
}

// MaybeCompress runs the decision call and, if warranted, the compression
// call, returning the new history (unchanged on any failure or negative
// decision). Per spec.md §4.4, a failed decision call falls back to
// compressing unconditionally once history exceeds FallbackThreshold.
func (c *Compressor) MaybeCompress(ctx context.Context, history []models.Message) ([]models.Message, *models.CompressionDecision, error) {
	if !c.ShouldConsider(history) {
		return history, nil, nil
	}

	decision, err := c.decide(ctx, history)
	if err != nil {
		c.logger.Warn("compression decision call failed, applying fallback", "error", err)
		if len(history) > c.cfg.FallbackThreshold {
			compressed, cErr := c.compress(ctx, history)
			if cErr != nil {
				c.logger.Error("fallback compression failed, leaving history unchanged", "error", cErr)
				return history, nil, cErr
			}
			return compressed, &models.CompressionDecision{ShouldCompress: true, Reasoning: "fallback: decision call failed and history exceeded fallback threshold"}, nil
		}
		return history, nil, nil
	}

	if !decision.ShouldCompress {
		return history, decision, nil
	}

	compressed, err := c.compress(ctx, history)
	if err != nil {
		c.logger.Error("compression call failed, leaving history unchanged", "error", err)
		return history, decision, err
	}
	return compressed, decision, nil
}

func (c *Compressor) decide(ctx context.Context, history []models.Message) (*models.CompressionDecision, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("no llm provider configured for compression decision")
	}
	var decision models.CompressionDecision
	err := c.provider.GenerateObject(ctx, ObjectRequest{
		Messages:   append([]models.Message{decisionPromptMessage(history)}, history...),
		Schema:     compressionDecisionSchema,
		AllowTools: false,
	}, &decision)
	if err != nil {
		return nil, err
	}
	return &decision, nil
}

func (c *Compressor) compress(ctx context.Context, history []models.Message) ([]models.Message, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("no llm provider configured for compression")
	}
	var result models.CompressionResult
	err := c.provider.GenerateObject(ctx, ObjectRequest{
		Messages:   append([]models.Message{compressionPromptMessage(history)}, history...),
		Schema:     compressionResultSchema,
		AllowTools: false,
	}, &result)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal compression result: %w", err)
	}
	summary := models.NewMessage(models.RoleUser, "[compressed message]\n"+string(payload))
	return []models.Message{summary}, nil
}

func decisionPromptMessage(history []models.Message) models.Message {
	return models.NewMessage(models.RoleSystem, fmt.Sprintf(
		"The conversation below has %d messages. Decide whether it should be compressed now. Respond with should_compress, reasoning, and confidence.",
		len(history)))
}

func compressionPromptMessage(history []models.Message) models.Message {
	return models.NewMessage(models.RoleSystem,
		"Summarize the conversation below into overall_goals, key_knowledge, file_changes, task_progress, recent_outcomes, and a context_quality self-assessment (high/medium/low). Be concrete; preserve file paths, decisions, and open issues.")
}
