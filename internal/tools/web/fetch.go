package web

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reactorhq/agent/pkg/models"
)

var fetchSchema = json.RawMessage(`{
	"type": "object",
	"required": ["url"],
	"properties": {
		"url": {"type": "string", "description": "URL to fetch (http/https only)."},
		"max_chars": {"type": "integer", "minimum": 0, "description": "Maximum characters to return (default 10000)."}
	}
}`)

// FetchConfig controls url_fetch defaults.
type FetchConfig struct {
	MaxChars int
}

func (c FetchConfig) maxChars() int {
	if c.MaxChars <= 0 {
		return 10_000
	}
	return c.MaxChars
}

// FetchTool fetches a URL and extracts its readable text content.
type FetchTool struct {
	cfg       FetchConfig
	extractor *Extractor
}

// NewFetchTool builds a url_fetch tool.
func NewFetchTool(cfg FetchConfig, extractor *Extractor) *FetchTool {
	if extractor == nil {
		extractor = NewExtractor(nil)
	}
	return &FetchTool{cfg: cfg, extractor: extractor}
}

func (t *FetchTool) Name() string { return "url_fetch" }

func (t *FetchTool) Description() string {
	return "Fetch and extract readable content from a URL without full browser automation."
}

func (t *FetchTool) Schema() json.RawMessage { return fetchSchema }

func (t *FetchTool) Category() models.ToolCategory { return models.CategoryWeb }

func (t *FetchTool) Permission() models.PermissionClass { return models.PermissionNetwork }

type fetchOutput struct {
	URL       string `json:"url"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

func (t *FetchTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		URL      string `json:"url"`
		MaxChars int    `json:"max_chars"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(input.URL) == "" {
		return nil, fmt.Errorf("url is required")
	}

	content, err := t.extractor.Extract(ctx, input.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	limit := t.cfg.maxChars()
	if input.MaxChars > 0 && input.MaxChars < limit {
		limit = input.MaxChars
	}

	truncated := false
	if len(content) > limit {
		content = content[:limit] + "..."
		truncated = true
	}

	return fetchOutput{URL: input.URL, Content: content, Truncated: truncated}, nil
}
