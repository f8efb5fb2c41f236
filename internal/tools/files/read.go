package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reactorhq/agent/pkg/models"
)

var readSchema = json.RawMessage(`{
	"type": "object",
	"required": ["path"],
	"properties": {
		"path": {"type": "string", "description": "Path to the file, relative to the workspace."},
		"offset": {"type": "integer", "minimum": 0, "description": "Byte offset to start reading from (default 0)."},
		"max_bytes": {"type": "integer", "minimum": 0, "description": "Maximum bytes to read (capped by the tool default)."}
	}
}`)

// ReadTool reads a file from the workspace, with an offset/length window so
// the model can page through large files without blowing its context.
type ReadTool struct {
	resolver   Resolver
	maxReadLen int
}

// NewReadTool builds a read tool scoped to cfg.Workspace.
func NewReadTool(cfg Config) *ReadTool {
	limit := cfg.MaxReadBytes
	if limit <= 0 {
		limit = 200_000
	}
	return &ReadTool{resolver: Resolver{Root: cfg.Workspace}, maxReadLen: limit}
}

func (t *ReadTool) Name() string { return "read_file" }

func (t *ReadTool) Description() string {
	return "Read a file from the workspace with an optional byte offset and limit."
}

func (t *ReadTool) Schema() json.RawMessage { return readSchema }

func (t *ReadTool) Category() models.ToolCategory { return models.CategoryFile }

func (t *ReadTool) Permission() models.PermissionClass { return models.PermissionReadOnly }

type readResult struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Offset    int64  `json:"offset"`
	Bytes     int    `json:"bytes"`
	Truncated bool   `json:"truncated"`
}

func (t *ReadTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Path     string `json:"path"`
		Offset   int64  `json:"offset"`
		MaxBytes int    `json:"max_bytes"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(input.Path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	if input.Offset < 0 {
		return nil, fmt.Errorf("offset must be >= 0")
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if input.Offset > 0 {
		if _, err := file.Seek(input.Offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek file: %w", err)
		}
	}

	limit := t.maxReadLen
	if input.MaxBytes > 0 && input.MaxBytes < limit {
		limit = input.MaxBytes
	}

	remaining := int64(limit)
	if size := info.Size(); size > 0 {
		remaining = size - input.Offset
		if remaining < 0 {
			remaining = 0
		}
		if remaining > int64(limit) {
			remaining = int64(limit)
		}
	}

	buf, err := io.ReadAll(io.LimitReader(file, remaining))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	truncated := info.Size() > 0 && input.Offset+int64(len(buf)) < info.Size()

	return readResult{
		Path:      input.Path,
		Content:   string(buf),
		Offset:    input.Offset,
		Bytes:     len(buf),
		Truncated: truncated,
	}, nil
}
