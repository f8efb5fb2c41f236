package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestResolver_RejectsEscapingPaths(t *testing.T) {
	r := Resolver{Root: t.TempDir()}
	_, err := r.Resolve("../../etc/passwd")
	assert.Error(t, err)
}

func TestResolver_AllowsNestedPath(t *testing.T) {
	root := t.TempDir()
	r := Resolver{Root: root}
	resolved, err := r.Resolve("a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b", "c.txt"), resolved)
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Workspace: root}
	writer := NewWriteTool(cfg)
	reader := NewReadTool(cfg)

	_, err := writer.Invoke(context.Background(), writeArgs(t, map[string]any{
		"path":    "notes/todo.txt",
		"content": "hello world",
	}))
	require.NoError(t, err)

	out, err := reader.Invoke(context.Background(), writeArgs(t, map[string]any{
		"path": "notes/todo.txt",
	}))
	require.NoError(t, err)
	result, ok := out.(readResult)
	require.True(t, ok)
	assert.Equal(t, "hello world", result.Content)
	assert.False(t, result.Truncated)
}

func TestWriteAppend(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Workspace: root}
	writer := NewWriteTool(cfg)

	_, err := writer.Invoke(context.Background(), writeArgs(t, map[string]any{"path": "f.txt", "content": "a"}))
	require.NoError(t, err)
	_, err = writer.Invoke(context.Background(), writeArgs(t, map[string]any{"path": "f.txt", "content": "b", "append": true}))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ab", string(data))
}

func TestReadRespectsOffsetAndMaxBytes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte("0123456789"), 0o644))

	reader := NewReadTool(Config{Workspace: root})
	out, err := reader.Invoke(context.Background(), writeArgs(t, map[string]any{
		"path":      "big.txt",
		"offset":    3,
		"max_bytes": 4,
	}))
	require.NoError(t, err)
	result := out.(readResult)
	assert.Equal(t, "3456", result.Content)
	assert.True(t, result.Truncated)
}

func TestApplyPatch_RoundTripReversal(t *testing.T) {
	root := t.TempDir()
	original := "line one\nline two\nline three\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte(original), 0o644))

	patch := "--- a/f.txt\n" +
		"+++ b/f.txt\n" +
		"@@ -1,3 +1,3 @@\n" +
		" line one\n" +
		"-line two\n" +
		"+line TWO\n" +
		" line three\n"

	tool := NewPatchTool(Config{Workspace: root})

	_, err := tool.Invoke(context.Background(), writeArgs(t, map[string]any{"patch": patch}))
	require.NoError(t, err)

	patched, err := os.ReadFile(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline TWO\nline three\n", string(patched))

	_, err = tool.Invoke(context.Background(), writeArgs(t, map[string]any{"patch": patch, "reverse": true}))
	require.NoError(t, err)

	restored, err := os.ReadFile(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, original, string(restored))
}

func TestApplyPatch_ContextMismatchErrors(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("a\nb\n"), 0o644))

	patch := "--- a/f.txt\n+++ b/f.txt\n@@ -1,2 +1,2 @@\n a\n-zzz\n+c\n"
	tool := NewPatchTool(Config{Workspace: root})
	_, err := tool.Invoke(context.Background(), writeArgs(t, map[string]any{"patch": patch}))
	assert.Error(t, err)
}

func TestApplyPatch_MissingPatchErrors(t *testing.T) {
	tool := NewPatchTool(Config{Workspace: t.TempDir()})
	_, err := tool.Invoke(context.Background(), writeArgs(t, map[string]any{"patch": ""}))
	assert.Error(t, err)
}
