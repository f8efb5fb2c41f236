package files

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/reactorhq/agent/pkg/models"
)

func loadIgnore(root string) *gitignore.GitIgnore {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return gitignore.CompileIgnoreLines(".git")
	}
	lines := append(strings.Split(string(data), "\n"), ".git")
	return gitignore.CompileIgnoreLines(lines...)
}

var findFilesSchema = json.RawMessage(`{
	"type": "object",
	"required": ["pattern"],
	"properties": {
		"pattern": {"type": "string", "description": "A filepath.Match glob pattern, e.g. \"**/*.go\"."},
		"max_results": {"type": "integer", "minimum": 1, "description": "Maximum number of matches to return (default 200)."}
	}
}`)

// FindFilesTool lists workspace files whose name matches a glob pattern,
// skipping anything the workspace .gitignore excludes.
type FindFilesTool struct {
	resolver Resolver
	root     string
}

// NewFindFilesTool builds a find_files tool scoped to cfg.Workspace.
func NewFindFilesTool(cfg Config) *FindFilesTool {
	root := cfg.Workspace
	if root == "" {
		root = "."
	}
	return &FindFilesTool{resolver: Resolver{Root: root}, root: root}
}

func (t *FindFilesTool) Name() string { return "find_files" }

func (t *FindFilesTool) Description() string {
	return "List workspace files whose path matches a glob pattern, honoring .gitignore."
}

func (t *FindFilesTool) Schema() json.RawMessage { return findFilesSchema }

func (t *FindFilesTool) Category() models.ToolCategory { return models.CategoryFile }

func (t *FindFilesTool) Permission() models.PermissionClass { return models.PermissionReadOnly }

func (t *FindFilesTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Pattern    string `json:"pattern"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return nil, fmt.Errorf("pattern is required")
	}
	limit := input.MaxResults
	if limit <= 0 {
		limit = 200
	}

	rootAbs, err := t.resolver.Resolve(".")
	if err != nil {
		return nil, err
	}
	ignore := loadIgnore(rootAbs)

	var matches []string
	err = filepath.WalkDir(rootAbs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, err := filepath.Rel(rootAbs, path)
		if err != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		if ignore.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if len(matches) >= limit {
			return fs.SkipAll
		}
		ok, err := matchGlob(input.Pattern, rel)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}

	return matches, nil
}

// matchGlob supports a "**" path-spanning wildcard in addition to
// filepath.Match's single-segment glob syntax.
func matchGlob(pattern, path string) (bool, error) {
	if strings.Contains(pattern, "**") {
		re, err := globToRegexp(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(path), nil
	}
	return filepath.Match(pattern, path)
}

func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	i := 0
	for i < len(pattern) {
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			sb.WriteString("(.*/)?")
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			sb.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			sb.WriteString("[^/]*")
			i++
		case pattern[i] == '?':
			sb.WriteString("[^/]")
			i++
		case pattern[i] == '.':
			sb.WriteString(`\.`)
			i++
		default:
			sb.WriteByte(pattern[i])
			i++
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

var searchInFilesSchema = json.RawMessage(`{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string", "description": "Regular expression to search for."},
		"path": {"type": "string", "description": "Limit the search to this subdirectory (default workspace root)."},
		"max_results": {"type": "integer", "minimum": 1, "description": "Maximum number of matching lines to return (default 200)."}
	}
}`)

// SearchInFilesTool greps workspace text files for a regular expression,
// honoring .gitignore.
type SearchInFilesTool struct {
	resolver Resolver
}

// NewSearchInFilesTool builds a search_in_files tool scoped to cfg.Workspace.
func NewSearchInFilesTool(cfg Config) *SearchInFilesTool {
	root := cfg.Workspace
	if root == "" {
		root = "."
	}
	return &SearchInFilesTool{resolver: Resolver{Root: root}}
}

func (t *SearchInFilesTool) Name() string { return "search_in_files" }

func (t *SearchInFilesTool) Description() string {
	return "Search workspace text files for lines matching a regular expression, honoring .gitignore."
}

func (t *SearchInFilesTool) Schema() json.RawMessage { return searchInFilesSchema }

func (t *SearchInFilesTool) Category() models.ToolCategory { return models.CategoryFile }

func (t *SearchInFilesTool) Permission() models.PermissionClass { return models.PermissionReadOnly }

// SearchMatch is one matching line.
type SearchMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (t *SearchInFilesTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Query      string `json:"query"`
		Path       string `json:"path"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	limit := input.MaxResults
	if limit <= 0 {
		limit = 200
	}

	re, err := regexp.Compile(input.Query)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: %w", err)
	}

	searchRoot := "."
	if input.Path != "" {
		searchRoot = input.Path
	}
	startAbs, err := t.resolver.Resolve(searchRoot)
	if err != nil {
		return nil, err
	}

	workspaceAbs, err := t.resolver.Resolve(".")
	if err != nil {
		return nil, err
	}
	ignore := loadIgnore(workspaceAbs)

	var matches []SearchMatch
	err = filepath.WalkDir(startAbs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, err := filepath.Rel(workspaceAbs, path)
		if err != nil {
			return nil
		}
		if ignore.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || len(matches) >= limit {
			if len(matches) >= limit {
				return fs.SkipAll
			}
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if re.MatchString(scanner.Text()) {
				matches = append(matches, SearchMatch{Path: rel, Line: lineNo, Text: scanner.Text()})
				if len(matches) >= limit {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}

	return matches, nil
}
