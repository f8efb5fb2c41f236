package codeintel

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `package sample

import (
	"fmt"
	"strings"
)

type Widget struct {
	Name string
}

type Greeter interface {
	Greet() string
}

func (w *Widget) Greet() string {
	return fmt.Sprintf("hi %s", strings.ToUpper(w.Name))
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}

func unexportedHelper() {}
`

func TestAnalyzeTool_ReportsStructure(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sample.go"), []byte(sampleSource), 0o644))

	tool := NewAnalyzeTool(Config{Workspace: root})
	raw, err := json.Marshal(map[string]any{"path": "sample.go"})
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), raw)
	require.NoError(t, err)
	structure := out.(Structure)

	assert.Equal(t, "sample", structure.Package)
	assert.Contains(t, structure.Imports, "fmt")
	assert.Contains(t, structure.Imports, "strings")

	require.Len(t, structure.Types, 2)
	assert.Equal(t, "Widget", structure.Types[0].Name)
	assert.Equal(t, "struct", structure.Types[0].Kind)
	assert.Equal(t, "Greeter", structure.Types[1].Name)
	assert.Equal(t, "interface", structure.Types[1].Kind)

	require.Len(t, structure.Functions, 3)
	assert.Equal(t, "Greet", structure.Functions[0].Name)
	assert.Equal(t, "*Widget", structure.Functions[0].Receiver)
	assert.Equal(t, "NewWidget", structure.Functions[1].Name)
	assert.True(t, structure.Functions[1].Exported)
	assert.False(t, structure.Functions[2].Exported)
}

func TestAnalyzeTool_RejectsNonGoFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o644))

	tool := NewAnalyzeTool(Config{Workspace: root})
	raw, _ := json.Marshal(map[string]any{"path": "notes.txt"})
	_, err := tool.Invoke(context.Background(), raw)
	assert.Error(t, err)
}

func TestAnalyzeTool_ParseErrorIsReported(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.go"), []byte("package broken\nfunc ( {"), 0o644))

	tool := NewAnalyzeTool(Config{Workspace: root})
	raw, _ := json.Marshal(map[string]any{"path": "broken.go"})
	_, err := tool.Invoke(context.Background(), raw)
	assert.Error(t, err)
}
