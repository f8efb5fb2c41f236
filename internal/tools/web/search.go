package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/reactorhq/agent/pkg/models"
)

const maxCacheEntries = 1000

var searchSchema = json.RawMessage(`{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string", "description": "The search query."},
		"result_count": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Number of results to return (default 5)."}
	}
}`)

// SearchConfig controls web_search defaults.
type SearchConfig struct {
	DefaultResultCount int
	CacheTTL           time.Duration
}

func (c SearchConfig) resultCount() int {
	if c.DefaultResultCount <= 0 {
		return 5
	}
	return c.DefaultResultCount
}

func (c SearchConfig) ttl() time.Duration {
	if c.CacheTTL <= 0 {
		return 5 * time.Minute
	}
	return c.CacheTTL
}

// SearchResult is one result entry.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type searchCacheEntry struct {
	results   []SearchResult
	expiresAt time.Time
}

// SearchTool implements web_search against DuckDuckGo's Instant Answer API,
// with a small in-memory cache.
type SearchTool struct {
	cfg     SearchConfig
	client  *http.Client
	limiter *RateLimiter
	cacheMu sync.Mutex
	cache   map[string]searchCacheEntry
}

// NewSearchTool builds a web_search tool. A nil limiter disables rate
// limiting.
func NewSearchTool(cfg SearchConfig, limiter *RateLimiter) *SearchTool {
	return &SearchTool{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		cache:   make(map[string]searchCacheEntry),
	}
}

func (t *SearchTool) Name() string { return "web_search" }

func (t *SearchTool) Description() string {
	return "Search the web for information relevant to the query."
}

func (t *SearchTool) Schema() json.RawMessage { return searchSchema }

func (t *SearchTool) Category() models.ToolCategory { return models.CategoryWeb }

func (t *SearchTool) Permission() models.PermissionClass { return models.PermissionNetwork }

type searchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

func (t *SearchTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Query       string `json:"query"`
		ResultCount int    `json:"result_count"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	count := input.ResultCount
	if count <= 0 {
		count = t.cfg.resultCount()
	}
	if count > 20 {
		count = 20
	}

	cacheKey := fmt.Sprintf("%d:%s", count, input.Query)
	if cached, ok := t.fromCache(cacheKey); ok {
		return searchOutput{Query: input.Query, Results: cached}, nil
	}

	results, err := t.searchDuckDuckGo(ctx, input.Query, count)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	t.putInCache(cacheKey, results)
	return searchOutput{Query: input.Query, Results: results}, nil
}

func (t *SearchTool) fromCache(key string) ([]SearchResult, bool) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	entry, ok := t.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.results, true
}

func (t *SearchTool) putInCache(key string, results []SearchResult) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()

	now := time.Now()
	for k, v := range t.cache {
		if now.After(v.expiresAt) {
			delete(t.cache, k)
		}
	}
	for len(t.cache) >= maxCacheEntries {
		var oldestKey string
		var oldestAt time.Time
		for k, v := range t.cache {
			if oldestKey == "" || v.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = k, v.expiresAt
			}
		}
		if oldestKey == "" {
			break
		}
		delete(t.cache, oldestKey)
	}

	t.cache[key] = searchCacheEntry{results: results, expiresAt: now.Add(t.cfg.ttl())}
}

func (t *SearchTool) searchDuckDuckGo(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	endpoint := fmt.Sprintf("https://api.duckduckgo.com/?q=%s&format=json&no_html=1", url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agent-runtime/1.0)")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var ddg struct {
		AbstractText   string `json:"AbstractText"`
		AbstractURL    string `json:"AbstractURL"`
		Heading        string `json:"Heading"`
		RelatedTopics  []struct {
			FirstURL string `json:"FirstURL"`
			Text     string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]SearchResult, 0, count)
	if ddg.AbstractText != "" && ddg.AbstractURL != "" {
		results = append(results, SearchResult{Title: ddg.Heading, URL: ddg.AbstractURL, Snippet: ddg.AbstractText})
	}
	for _, topic := range ddg.RelatedTopics {
		if len(results) >= count {
			break
		}
		if topic.FirstURL == "" || topic.Text == "" {
			continue
		}
		title := topic.Text
		if len(title) > 100 {
			title = title[:100]
		}
		results = append(results, SearchResult{Title: title, URL: topic.FirstURL, Snippet: topic.Text})
	}
	return results, nil
}
