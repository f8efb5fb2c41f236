// Package context provides token accounting over a conversation history:
// the Context/Token Manager's counting half (spec.md §4.4). Compression
// itself lives in the parent agent package, since it needs the LLM provider.
package context

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/reactorhq/agent/pkg/models"
)

const (
	// DefaultContextWindow is used when a model's window size is unknown.
	DefaultContextWindow = 128000

	// MinContextWindow is the minimum remaining budget before the window is
	// considered too tight to continue.
	MinContextWindow = 16000

	// WarnBelowTokens triggers a warning once remaining tokens drop below it.
	WarnBelowTokens = 32000

	// TokensPerChar is the tokens-per-character ratio (four characters per
	// token) used by EstimateTokens; any monotone tokenizer approximation
	// satisfies spec.md §4.4's "acceptable" bar.
	TokensPerChar = 0.25
)

// ModelContextWindows maps model IDs (or prefixes) to their context window
// size in tokens.
var ModelContextWindows = map[string]int{
	"claude-3-opus":     200000,
	"claude-3-sonnet":   200000,
	"claude-3-haiku":    200000,
	"claude-3-5-sonnet": 200000,
	"claude-3-5-haiku":  200000,
	"claude-opus-4":     200000,

	"gpt-4":             8192,
	"gpt-4-32k":         32768,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
	"gpt-3.5-turbo":     16385,
	"gpt-3.5-turbo-16k": 16385,
	"o1":                200000,
	"o1-mini":           128000,
	"o3-mini":           200000,
}

// WindowInfo is a point-in-time snapshot of a Window's accounting.
type WindowInfo struct {
	TotalTokens     int     `json:"total_tokens"`
	UsedTokens      int     `json:"used_tokens"`
	RemainingTokens int     `json:"remaining_tokens"`
	UsedPercent     float64 `json:"used_percent"`
	Source          string  `json:"source"`
}

func (w *WindowInfo) ShouldWarn() bool  { return w.RemainingTokens < WarnBelowTokens }
func (w *WindowInfo) ShouldBlock() bool { return w.RemainingTokens < MinContextWindow }

func (w *WindowInfo) Status() string {
	switch {
	case w.ShouldBlock():
		return "critical"
	case w.ShouldWarn():
		return "warning"
	default:
		return "ok"
	}
}

func (w *WindowInfo) String() string {
	return fmt.Sprintf("%d/%d tokens (%.1f%% used, %s)", w.UsedTokens, w.TotalTokens, w.UsedPercent, w.Status())
}

// Window tracks token usage against a model's context budget.
type Window struct {
	totalTokens int
	usedTokens  int
	source      string
}

// NewWindow builds a Window with an explicit total and a label for where
// that total came from ("model", "config", "default").
func NewWindow(totalTokens int, source string) *Window {
	if totalTokens <= 0 {
		totalTokens, source = DefaultContextWindow, "default"
	}
	return &Window{totalTokens: totalTokens, source: source}
}

// NewWindowForModel resolves a model ID to its known window size, falling
// back to the longest matching prefix, then to DefaultContextWindow.
func NewWindowForModel(modelID string) *Window {
	tokens, ok := GetModelContextWindow(modelID)
	if !ok {
		return NewWindow(DefaultContextWindow, "default")
	}
	return NewWindow(tokens, "model")
}

func (w *Window) Add(tokens int) { w.usedTokens += tokens }

func (w *Window) AddText(text string) int {
	tokens := EstimateTokens(text)
	w.Add(tokens)
	return tokens
}

func (w *Window) Reset()             { w.usedTokens = 0 }
func (w *Window) SetUsed(tokens int) { w.usedTokens = tokens }

func (w *Window) Info() *WindowInfo {
	remaining := w.Remaining()
	var usedPercent float64
	if w.totalTokens > 0 {
		usedPercent = float64(w.usedTokens) / float64(w.totalTokens) * 100
	}
	return &WindowInfo{
		TotalTokens:     w.totalTokens,
		UsedTokens:      w.usedTokens,
		RemainingTokens: remaining,
		UsedPercent:     usedPercent,
		Source:          w.source,
	}
}

func (w *Window) Remaining() int {
	if r := w.totalTokens - w.usedTokens; r > 0 {
		return r
	}
	return 0
}

func (w *Window) CanFit(tokens int) bool     { return w.Remaining() >= tokens }
func (w *Window) CanFitText(text string) bool { return w.CanFit(EstimateTokens(text)) }

// EstimateTokens approximates a text's token count at TokensPerChar per
// rune, with a floor of 1 for any non-empty input.
func EstimateTokens(text string) int {
	chars := utf8.RuneCountInString(text)
	tokens := int(float64(chars) * TokensPerChar)
	if tokens == 0 && chars > 0 {
		return 1
	}
	return tokens
}

// perMessageOverhead accounts for role/formatting tokens not captured by
// EstimateTokens on the content alone.
const perMessageOverhead = 4

// EstimateTokensForMessages sums the estimated tokens across a history,
// including a fixed per-message overhead.
func EstimateTokensForMessages(messages []models.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content) + perMessageOverhead
	}
	return total
}

// GetModelContextWindow resolves a model ID to a token budget via exact or
// longest-prefix match.
func GetModelContextWindow(modelID string) (int, bool) {
	if tokens, ok := ModelContextWindows[modelID]; ok {
		return tokens, true
	}
	bestPrefix, bestTokens := "", 0
	for prefix, tokens := range ModelContextWindows {
		if strings.HasPrefix(modelID, prefix) && len(prefix) > len(bestPrefix) {
			bestPrefix, bestTokens = prefix, tokens
		}
	}
	if bestPrefix == "" {
		return 0, false
	}
	return bestTokens, true
}

// RegisterModelContextWindow adds or overrides a model's window size.
func RegisterModelContextWindow(modelID string, tokens int) {
	ModelContextWindows[modelID] = tokens
}
