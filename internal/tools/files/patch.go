package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/reactorhq/agent/pkg/models"
)

var patchSchema = json.RawMessage(`{
	"type": "object",
	"required": ["patch"],
	"properties": {
		"patch": {"type": "string", "description": "Unified diff patch (---/+++ headers required)."},
		"reverse": {"type": "boolean", "description": "Apply the patch in reverse, undoing it (default false)."}
	}
}`)

// PatchTool applies unified diffs to workspace files, forwards or in
// reverse.
type PatchTool struct {
	resolver Resolver
}

// NewPatchTool creates an apply_patch tool scoped to the workspace.
func NewPatchTool(cfg Config) *PatchTool {
	return &PatchTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *PatchTool) Name() string { return "apply_patch" }

func (t *PatchTool) Description() string {
	return "Apply a unified diff patch to one or more files in the workspace. Set reverse to undo a previously applied patch."
}

func (t *PatchTool) Schema() json.RawMessage { return patchSchema }

func (t *PatchTool) Category() models.ToolCategory { return models.CategoryFile }

func (t *PatchTool) Permission() models.PermissionClass { return models.PermissionWriteFile }

type patchFileOutcome struct {
	Path         string `json:"path"`
	Hunks        int    `json:"hunks"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
}

type patchOutput struct {
	Applied []patchFileOutcome `json:"applied"`
	Reverse bool               `json:"reverse"`
}

func (t *PatchTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Patch   string `json:"patch"`
		Reverse bool   `json:"reverse"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(input.Patch) == "" {
		return nil, fmt.Errorf("patch is required")
	}

	patches, err := parseUnifiedDiff(input.Patch)
	if err != nil {
		return nil, err
	}
	if input.Reverse {
		for i := range patches {
			patches[i] = reversePatch(patches[i])
		}
	}

	outcomes := make([]patchFileOutcome, 0, len(patches))
	for _, patch := range patches {
		resolved, err := t.resolver.Resolve(patch.Path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		updated, err := applyFilePatch(string(data), patch)
		if err != nil {
			return nil, fmt.Errorf("apply patch to %s: %w", patch.Path, err)
		}
		if err := os.WriteFile(resolved, []byte(updated.Content), 0o644); err != nil {
			return nil, fmt.Errorf("write file: %w", err)
		}
		outcomes = append(outcomes, patchFileOutcome{
			Path:         patch.Path,
			Hunks:        len(patch.Hunks),
			LinesAdded:   updated.Added,
			LinesRemoved: updated.Removed,
		})
	}

	return patchOutput{Applied: outcomes, Reverse: input.Reverse}, nil
}

type filePatch struct {
	Path  string
	Hunks []hunk
}

type hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []string
}

type patchResult struct {
	Content string
	Added   int
	Removed int
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

func parseUnifiedDiff(patch string) ([]filePatch, error) {
	lines := strings.Split(patch, "\n")
	var patches []filePatch
	var current *filePatch
	var currentHunk *hunk

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "diff ") || strings.HasPrefix(line, "index "):
			continue
		case strings.HasPrefix(line, "--- "):
			if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "+++ ") {
				return nil, fmt.Errorf("invalid patch: missing +++ header")
			}
			newPath := strings.TrimSpace(strings.TrimPrefix(lines[i+1], "+++ "))
			newPath = strings.TrimPrefix(strings.TrimPrefix(newPath, "b/"), "a/")
			patches = append(patches, filePatch{Path: newPath})
			current = &patches[len(patches)-1]
			currentHunk = nil
			i++
		case strings.HasPrefix(line, "@@ "):
			if current == nil {
				return nil, fmt.Errorf("invalid patch: hunk without file header")
			}
			match := hunkHeader.FindStringSubmatch(line)
			if match == nil {
				return nil, fmt.Errorf("invalid patch: malformed hunk header")
			}
			h := hunk{
				OldStart: atoi(match[1]),
				OldLines: atoiDefault(match[2], 1),
				NewStart: atoi(match[3]),
				NewLines: atoiDefault(match[4], 1),
			}
			current.Hunks = append(current.Hunks, h)
			currentHunk = &current.Hunks[len(current.Hunks)-1]
		default:
			if currentHunk == nil {
				continue
			}
			if line == "\\ No newline at end of file" {
				continue
			}
			if line == "" {
				continue
			}
			prefix := line[:1]
			if prefix != " " && prefix != "+" && prefix != "-" {
				return nil, fmt.Errorf("invalid patch line: %s", line)
			}
			currentHunk.Lines = append(currentHunk.Lines, line)
		}
	}

	if len(patches) == 0 {
		return nil, fmt.Errorf("invalid patch: no file headers found")
	}
	return patches, nil
}

// reversePatch swaps additions and deletions and the old/new hunk offsets,
// producing the patch that undoes fp when applied. Reversing a reversed
// patch reproduces the original, satisfying the apply-then-reverse
// round-trip property.
func reversePatch(fp filePatch) filePatch {
	out := filePatch{Path: fp.Path, Hunks: make([]hunk, len(fp.Hunks))}
	for i, h := range fp.Hunks {
		rh := hunk{
			OldStart: h.NewStart,
			OldLines: h.NewLines,
			NewStart: h.OldStart,
			NewLines: h.OldLines,
			Lines:    make([]string, len(h.Lines)),
		}
		for j, line := range h.Lines {
			if line == "" {
				rh.Lines[j] = line
				continue
			}
			switch line[0] {
			case '+':
				rh.Lines[j] = "-" + line[1:]
			case '-':
				rh.Lines[j] = "+" + line[1:]
			default:
				rh.Lines[j] = line
			}
		}
		out.Hunks[i] = rh
	}
	return out
}

// applyFilePatch applies hunks to content directly rather than shelling out
// to an external patch(1) equivalent; the hunk format here is already the
// unified-diff subset we parse ourselves, so there is no separate binary to
// invoke. It splits and rejoins on "\n" only, so a CRLF file's "\r" becomes
// part of each line's text on both sides of the context/delete comparison —
// harmless under the round-trip law as long as the file's line endings are
// consistent, but a patch generated against LF content would context-mismatch
// against a CRLF file.
func applyFilePatch(content string, patch filePatch) (patchResult, error) {
	hadTrailing := strings.HasSuffix(content, "\n")
	trimmed := strings.TrimSuffix(content, "\n")
	var lines []string
	if trimmed != "" {
		lines = strings.Split(trimmed, "\n")
	}

	added := 0
	removed := 0

	for _, h := range patch.Hunks {
		idx := h.OldStart - 1
		if idx < 0 {
			idx = 0
		}
		for _, line := range h.Lines {
			if line == "" {
				continue
			}
			prefix := line[:1]
			text := ""
			if len(line) > 1 {
				text = line[1:]
			}
			switch prefix {
			case " ":
				if idx >= len(lines) || lines[idx] != text {
					return patchResult{}, fmt.Errorf("context mismatch")
				}
				idx++
			case "-":
				if idx >= len(lines) || lines[idx] != text {
					return patchResult{}, fmt.Errorf("delete mismatch")
				}
				lines = append(lines[:idx], lines[idx+1:]...)
				removed++
			case "+":
				lines = append(lines[:idx], append([]string{text}, lines[idx:]...)...)
				idx++
				added++
			}
		}
	}

	result := strings.Join(lines, "\n")
	if hadTrailing {
		result += "\n"
	}
	return patchResult{Content: result, Added: added, Removed: removed}, nil
}

func atoi(value string) int {
	if value == "" {
		return 0
	}
	var out int
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0
		}
		out = out*10 + int(r-'0')
	}
	return out
}

func atoiDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed := atoi(value)
	if parsed == 0 {
		return fallback
	}
	return parsed
}
