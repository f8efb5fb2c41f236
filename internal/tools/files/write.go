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

var writeSchema = json.RawMessage(`{
	"type": "object",
	"required": ["path", "content"],
	"properties": {
		"path": {"type": "string", "description": "Path to the file, relative to the workspace."},
		"content": {"type": "string", "description": "Content to write."},
		"append": {"type": "boolean", "description": "Append instead of overwrite (default false)."}
	}
}`)

// WriteTool creates or overwrites a file in the workspace, creating parent
// directories as needed.
type WriteTool struct {
	resolver Resolver
}

// NewWriteTool builds a write tool scoped to cfg.Workspace.
func NewWriteTool(cfg Config) *WriteTool {
	return &WriteTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *WriteTool) Name() string { return "write_file" }

func (t *WriteTool) Description() string {
	return "Write or append to a file in the workspace, creating parent directories as needed."
}

func (t *WriteTool) Schema() json.RawMessage { return writeSchema }

func (t *WriteTool) Category() models.ToolCategory { return models.CategoryFile }

func (t *WriteTool) Permission() models.PermissionClass { return models.PermissionWriteFile }

type writeResult struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
	Appended     bool   `json:"appended"`
	Created      bool   `json:"created"`
}

func (t *WriteTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
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

	_, statErr := os.Stat(resolved)
	created := statErr != nil

	flags := os.O_WRONLY | os.O_CREATE
	if input.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file for write: %w", err)
	}
	defer file.Close()

	n, err := file.WriteString(input.Content)
	if err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return writeResult{
		Path:         input.Path,
		BytesWritten: n,
		Appended:     input.Append,
		Created:      created,
	}, nil
}
