package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchTool_ExtractsTitleAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Hello Page</title></head><body><main><p>Some real content that is definitely over two hundred characters long so the extractor treats it as the main body instead of falling back to the raw body tag extraction path which only triggers when containers come up empty on a page.</p></main></body></html>`))
	}))
	defer srv.Close()

	tool := NewFetchTool(FetchConfig{}, NewExtractorForTesting())
	raw, err := json.Marshal(map[string]any{"url": srv.URL})
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), raw)
	require.NoError(t, err)
	result := out.(fetchOutput)
	assert.Contains(t, result.Content, "Hello Page")
	assert.Contains(t, result.Content, "Some real content")
}

func TestFetchTool_MissingURLErrors(t *testing.T) {
	tool := NewFetchTool(FetchConfig{}, NewExtractorForTesting())
	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"url":""}`))
	assert.Error(t, err)
}

func TestFetchTool_TruncatesToMaxChars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	tool := NewFetchTool(FetchConfig{MaxChars: 4}, NewExtractorForTesting())
	raw, _ := json.Marshal(map[string]any{"url": srv.URL})
	out, err := tool.Invoke(context.Background(), raw)
	require.NoError(t, err)
	result := out.(fetchOutput)
	assert.True(t, result.Truncated)
}

func TestSearchTool_RequiresQuery(t *testing.T) {
	tool := NewSearchTool(SearchConfig{}, nil)
	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"query":""}`))
	assert.Error(t, err)
}

func TestSearchTool_CachesRepeatedQueries(t *testing.T) {
	tool := NewSearchTool(SearchConfig{}, nil)
	tool.putInCache("5:golang", []SearchResult{{Title: "Go", URL: "https://go.dev", Snippet: "The Go language"}})

	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"query":"golang","result_count":5}`))
	require.NoError(t, err)
	result := out.(searchOutput)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "Go", result.Results[0].Title)
}
