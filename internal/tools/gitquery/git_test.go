package gitquery

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}

	writeAndCommit := func(name, content, message string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
		_, err = wt.Commit(message, &git.CommitOptions{Author: sig})
		require.NoError(t, err)
	}

	writeAndCommit("a.txt", "first\n", "add a")
	writeAndCommit("a.txt", "first\nsecond\n", "update a")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("scratch"), 0o644))

	return dir
}

func TestStatusTool_ReportsUntrackedFile(t *testing.T) {
	dir := initRepo(t)
	tool := NewStatusTool(Config{Workspace: dir})
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	statuses := out.([]fileStatus)

	found := false
	for _, s := range statuses {
		if s.Path == "untracked.txt" {
			found = true
		}
	}
	assert.True(t, found, "expected untracked.txt to be reported")
}

func TestLogTool_ReturnsCommitsNewestFirst(t *testing.T) {
	dir := initRepo(t)
	tool := NewLogTool(Config{Workspace: dir})
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	commits := out.([]commitSummary)
	require.Len(t, commits, 2)
	assert.Equal(t, "update a", commits[0].Message)
	assert.Equal(t, "add a", commits[1].Message)
}

func TestLogTool_RespectsMaxCommits(t *testing.T) {
	dir := initRepo(t)
	tool := NewLogTool(Config{Workspace: dir})
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"max_commits":1}`))
	require.NoError(t, err)
	commits := out.([]commitSummary)
	assert.Len(t, commits, 1)
}

func TestDiffTool_DefaultsToHeadMinusOne(t *testing.T) {
	dir := initRepo(t)
	tool := NewDiffTool(Config{Workspace: dir})
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	result := out.(map[string]any)
	patch := result["patch"].(string)
	assert.Contains(t, patch, "+second")
}

func TestDiffTool_UnresolvableRevisionErrors(t *testing.T) {
	dir := initRepo(t)
	tool := NewDiffTool(Config{Workspace: dir})
	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"from":"deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"}`))
	assert.Error(t, err)
}
