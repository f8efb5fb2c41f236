package agent

import (
	"time"

	"github.com/reactorhq/agent/internal/agent/loopguard"
)

// LoopConfig configures one Main Agent Loop run: iteration cap, per-tool
// timeout defaults, and the circuit breaker threshold.
type LoopConfig struct {
	// MaxIterations caps tool-use iterations per run (spec.md §4.7).
	// Default: 15.
	MaxIterations int

	// ConsecutiveFailureLimit trips the circuit breaker after this many
	// iterations in a row end with every action failing. Default: 2.
	ConsecutiveFailureLimit int

	// ToolTimeout is the default per-tool-call timeout, overridable per
	// category via CategoryTimeouts. Default: 30s.
	ToolTimeout time.Duration

	// CategoryTimeouts overrides ToolTimeout for specific categories.
	CategoryTimeouts map[string]time.Duration

	// CompressionConfig holds the Context/Token Manager's compression
	// thresholds. The Loop does not read it: it compresses through the
	// Compressor passed to NewLoop, which carries its own CompressionConfig.
	CompressionConfig *CompressionConfig

	// LoopGuardConfig governs the thresholds of the Loop Detector that
	// NewToolRegistry builds when it is given no detector.
	LoopGuardConfig *loopguard.Config

	// SystemPromptNormal / SystemPromptPlan select the prompt by mode
	// (spec.md §4.7 "system prompt selected by mode").
	SystemPromptNormal string
	SystemPromptPlan   string
}

// DefaultLoopConfig returns the spec-mandated defaults.
func DefaultLoopConfig() *LoopConfig {
	return &LoopConfig{
		MaxIterations:           15,
		ConsecutiveFailureLimit: 2,
		ToolTimeout:             30 * time.Second,
		CategoryTimeouts:        map[string]time.Duration{},
		CompressionConfig:       DefaultCompressionConfig(),
		LoopGuardConfig:         loopguard.DefaultConfig(),
	}
}

func sanitizeLoopConfig(config *LoopConfig) *LoopConfig {
	if config == nil {
		return DefaultLoopConfig()
	}
	cfg := *config
	defaults := DefaultLoopConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaults.MaxIterations
	}
	if cfg.ConsecutiveFailureLimit <= 0 {
		cfg.ConsecutiveFailureLimit = defaults.ConsecutiveFailureLimit
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = defaults.ToolTimeout
	}
	if cfg.CategoryTimeouts == nil {
		cfg.CategoryTimeouts = map[string]time.Duration{}
	}
	if cfg.CompressionConfig == nil {
		cfg.CompressionConfig = defaults.CompressionConfig
	}
	if cfg.LoopGuardConfig == nil {
		cfg.LoopGuardConfig = defaults.LoopGuardConfig
	}
	return &cfg
}

// TimeoutFor returns the effective timeout for a tool category.
func (c *LoopConfig) TimeoutFor(category string) time.Duration {
	if d, ok := c.CategoryTimeouts[category]; ok && d > 0 {
		return d
	}
	return c.ToolTimeout
}

// SubAgentConfig configures one Sub-Agent run (spec.md §4.8).
type SubAgentConfig struct {
	// MaxTurns caps the sub-agent's own iteration count. Default: 20.
	MaxTurns int

	// Timeout is the wall-clock budget for the whole sub-agent run.
	// Default: 300s.
	Timeout time.Duration

	// AllowedTools, if non-empty, restricts the sub-agent to this subset of
	// the parent registry's tools.
	AllowedTools []string
}

// DefaultSubAgentConfig returns the spec-mandated defaults.
func DefaultSubAgentConfig() *SubAgentConfig {
	return &SubAgentConfig{
		MaxTurns: 20,
		Timeout:  300 * time.Second,
	}
}

func sanitizeSubAgentConfig(config *SubAgentConfig) *SubAgentConfig {
	if config == nil {
		return DefaultSubAgentConfig()
	}
	cfg := *config
	defaults := DefaultSubAgentConfig()
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaults.MaxTurns
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &cfg
}
