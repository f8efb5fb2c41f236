package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reactorhq/agent/pkg/models"
)

var createSchema = json.RawMessage(`{
	"type": "object",
	"required": ["path", "content"],
	"properties": {
		"path": {"type": "string", "description": "Path to the new file, relative to the workspace."},
		"content": {"type": "string", "description": "Content to write to the new file."}
	}
}`)

// CreateTool makes a new file in the workspace, creating parent directories
// as needed. Unlike WriteTool it is create-only: it errors if the target
// already exists, per spec.md §4.1's distinct create_file/write_file
// capabilities (create-only vs. create-or-overwrite).
type CreateTool struct {
	resolver Resolver
}

// NewCreateTool builds a create tool scoped to cfg.Workspace.
func NewCreateTool(cfg Config) *CreateTool {
	return &CreateTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *CreateTool) Name() string { return "create_file" }

func (t *CreateTool) Description() string {
	return "Create a new file in the workspace. Fails if the file already exists; use write_file to overwrite."
}

func (t *CreateTool) Schema() json.RawMessage { return createSchema }

func (t *CreateTool) Category() models.ToolCategory { return models.CategoryFile }

func (t *CreateTool) Permission() models.PermissionClass { return models.PermissionWriteFile }

type createResult struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
}

func (t *CreateTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(input.Path) == "" {
		return nil, fmt.Errorf("path is required")
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directories: %w", err)
	}

	file, err := os.OpenFile(resolved, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("file already exists: %s", input.Path)
		}
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	n, err := file.WriteString(input.Content)
	if err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return createResult{Path: input.Path, BytesWritten: n}, nil
}
