// Package codeintel implements analyze_code_structure: a structural summary
// of a Go source file (package, imports, top-level types, functions, and
// methods) built on go/parser and go/ast.
package codeintel

import (
	"context"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/reactorhq/agent/internal/tools/files"
	"github.com/reactorhq/agent/pkg/models"
)

var analyzeSchema = json.RawMessage(`{
	"type": "object",
	"required": ["path"],
	"properties": {
		"path": {"type": "string", "description": "Path to a .go source file, relative to the workspace."}
	}
}`)

// Config scopes the analyzer to a workspace.
type Config struct {
	Workspace string
}

// AnalyzeTool parses a Go source file and reports its structural outline.
type AnalyzeTool struct {
	resolver files.Resolver
}

// NewAnalyzeTool builds an analyze_code_structure tool scoped to cfg.Workspace.
func NewAnalyzeTool(cfg Config) *AnalyzeTool {
	return &AnalyzeTool{resolver: files.Resolver{Root: cfg.Workspace}}
}

func (t *AnalyzeTool) Name() string { return "analyze_code_structure" }

func (t *AnalyzeTool) Description() string {
	return "Parse a Go source file and report its package, imports, types, functions, and methods."
}

func (t *AnalyzeTool) Schema() json.RawMessage { return analyzeSchema }

func (t *AnalyzeTool) Category() models.ToolCategory { return models.CategoryFile }

func (t *AnalyzeTool) Permission() models.PermissionClass { return models.PermissionReadOnly }

// FuncInfo describes a top-level function or method.
type FuncInfo struct {
	Name     string `json:"name"`
	Receiver string `json:"receiver,omitempty"`
	Exported bool   `json:"exported"`
	Line     int    `json:"line"`
}

// TypeInfo describes a top-level type declaration.
type TypeInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Exported bool   `json:"exported"`
	Line     int    `json:"line"`
}

// Structure is the structural summary of one Go source file.
type Structure struct {
	Package   string     `json:"package"`
	Imports   []string   `json:"imports"`
	Types     []TypeInfo `json:"types"`
	Functions []FuncInfo `json:"functions"`
}

func (t *AnalyzeTool) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(input.Path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	if !strings.HasSuffix(input.Path, ".go") {
		return nil, fmt.Errorf("analyze_code_structure only supports .go source files")
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, resolved, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", input.Path, err)
	}

	structure := Structure{Package: file.Name.Name}

	for _, imp := range file.Imports {
		structure.Imports = append(structure.Imports, strings.Trim(imp.Path.Value, `"`))
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				structure.Types = append(structure.Types, TypeInfo{
					Name:     typeSpec.Name.Name,
					Kind:     typeKind(typeSpec.Type),
					Exported: typeSpec.Name.IsExported(),
					Line:     fset.Position(typeSpec.Pos()).Line,
				})
			}
		case *ast.FuncDecl:
			info := FuncInfo{
				Name:     d.Name.Name,
				Exported: d.Name.IsExported(),
				Line:     fset.Position(d.Pos()).Line,
			}
			if d.Recv != nil && len(d.Recv.List) > 0 {
				info.Receiver = receiverType(d.Recv.List[0].Type)
			}
			structure.Functions = append(structure.Functions, info)
		}
	}

	return structure, nil
}

func typeKind(expr ast.Expr) string {
	switch expr.(type) {
	case *ast.StructType:
		return "struct"
	case *ast.InterfaceType:
		return "interface"
	case *ast.FuncType:
		return "func"
	case *ast.ArrayType:
		return "array"
	case *ast.MapType:
		return "map"
	default:
		return "alias"
	}
}

func receiverType(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return "*" + receiverType(e.X)
	case *ast.Ident:
		return e.Name
	default:
		return ""
	}
}
