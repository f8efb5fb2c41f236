// Package gitquery implements the read-only git inspection tools:
// git_status, git_log, and git_diff, backed by go-git so the agent never
// shells out to the git binary.
package gitquery

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/reactorhq/agent/pkg/models"
)

// Config scopes the git tools to a workspace checkout.
type Config struct {
	Workspace string
}

func (c Config) open() (*git.Repository, error) {
	root := c.Workspace
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

var statusSchema = json.RawMessage(`{"type": "object", "properties": {}}`)

// StatusTool reports the working tree status, mirroring `git status
// --porcelain`.
type StatusTool struct{ cfg Config }

// NewStatusTool builds a git_status tool scoped to cfg.Workspace.
func NewStatusTool(cfg Config) *StatusTool { return &StatusTool{cfg: cfg} }

func (t *StatusTool) Name() string { return "git_status" }

func (t *StatusTool) Description() string {
	return "Show the working tree status: staged, modified, and untracked files."
}

func (t *StatusTool) Schema() json.RawMessage { return statusSchema }

func (t *StatusTool) Category() models.ToolCategory { return models.CategoryGit }

func (t *StatusTool) Permission() models.PermissionClass { return models.PermissionReadOnly }

type fileStatus struct {
	Path     string `json:"path"`
	Staging  string `json:"staging"`
	Worktree string `json:"worktree"`
}

func (t *StatusTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	repo, err := t.cfg.open()
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	out := make([]fileStatus, 0, len(status))
	for path, s := range status {
		out = append(out, fileStatus{
			Path:     path,
			Staging:  string(s.Staging),
			Worktree: string(s.Worktree),
		})
	}
	return out, nil
}

var logSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"max_commits": {"type": "integer", "minimum": 1, "description": "Maximum commits to return (default 20)."},
		"path": {"type": "string", "description": "Limit history to commits touching this path."}
	}
}`)

// LogTool returns recent commit history from HEAD.
type LogTool struct{ cfg Config }

// NewLogTool builds a git_log tool scoped to cfg.Workspace.
func NewLogTool(cfg Config) *LogTool { return &LogTool{cfg: cfg} }

func (t *LogTool) Name() string { return "git_log" }

func (t *LogTool) Description() string {
	return "List recent commits reachable from HEAD, optionally filtered to a path."
}

func (t *LogTool) Schema() json.RawMessage { return logSchema }

func (t *LogTool) Category() models.ToolCategory { return models.CategoryGit }

func (t *LogTool) Permission() models.PermissionClass { return models.PermissionReadOnly }

type commitSummary struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	When    string `json:"when"`
	Message string `json:"message"`
}

func (t *LogTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		MaxCommits int    `json:"max_commits"`
		Path       string `json:"path"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	limit := input.MaxCommits
	if limit <= 0 {
		limit = 20
	}

	repo, err := t.cfg.open()
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	logOpts := &git.LogOptions{From: head.Hash()}
	if input.Path != "" {
		logOpts.PathFilter = func(p string) bool { return p == input.Path || strings.HasPrefix(p, input.Path+"/") }
	}
	iter, err := repo.Log(logOpts)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	defer iter.Close()

	out := make([]commitSummary, 0, limit)
	err = iter.ForEach(func(c *object.Commit) error {
		if len(out) >= limit {
			return storer.ErrStop
		}
		out = append(out, commitSummary{
			Hash:    c.Hash.String(),
			Author:  c.Author.Name,
			When:    c.Author.When.UTC().Format("2006-01-02T15:04:05Z"),
			Message: strings.TrimSpace(c.Message),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk log: %w", err)
	}
	return out, nil
}

var diffSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"from": {"type": "string", "description": "Base revision (default HEAD~1)."},
		"to": {"type": "string", "description": "Target revision (default HEAD)."}
	}
}`)

// DiffTool returns the unified diff between two revisions (defaulting to
// HEAD~1..HEAD).
type DiffTool struct{ cfg Config }

// NewDiffTool builds a git_diff tool scoped to cfg.Workspace.
func NewDiffTool(cfg Config) *DiffTool { return &DiffTool{cfg: cfg} }

func (t *DiffTool) Name() string { return "git_diff" }

func (t *DiffTool) Description() string {
	return "Show the unified diff between two revisions, defaulting to HEAD~1..HEAD."
}

func (t *DiffTool) Schema() json.RawMessage { return diffSchema }

func (t *DiffTool) Category() models.ToolCategory { return models.CategoryGit }

func (t *DiffTool) Permission() models.PermissionClass { return models.PermissionReadOnly }

func (t *DiffTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if input.To == "" {
		input.To = "HEAD"
	}
	if input.From == "" {
		input.From = "HEAD~1"
	}

	repo, err := t.cfg.open()
	if err != nil {
		return nil, err
	}

	fromCommit, err := resolveCommit(repo, input.From)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", input.From, err)
	}
	toCommit, err := resolveCommit(repo, input.To)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", input.To, err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree for %q: %w", input.From, err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree for %q: %w", input.To, err)
	}

	patch, err := fromTree.Patch(toTree)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}

	var sb strings.Builder
	if err := patch.Encode(&sb); err != nil {
		return nil, fmt.Errorf("encode diff: %w", err)
	}

	return map[string]any{
		"from":  input.From,
		"to":    input.To,
		"patch": sb.String(),
	}, nil
}

func resolveCommit(repo *git.Repository, revision string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, err
	}
	return repo.CommitObject(*hash)
}
