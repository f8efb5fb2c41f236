package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reactorhq/agent/pkg/models"
)

// Tool adapts one external bridge tool to the agent.Tool interface so it can
// be registered alongside native tools. Its registry name carries the
// "mcp:" prefix the dispatcher's pattern vocabulary recognises.
type Tool struct {
	manager    *Manager
	descriptor ToolDescriptor
	serverID   string
}

// NewTool wraps a descriptor fetched from a connected child.
func NewTool(manager *Manager, serverID string, descriptor ToolDescriptor) *Tool {
	return &Tool{manager: manager, descriptor: descriptor, serverID: serverID}
}

func (t *Tool) Name() string { return "mcp:" + t.serverID + ":" + t.descriptor.Name }

func (t *Tool) Description() string { return t.descriptor.Description }

func (t *Tool) Schema() json.RawMessage { return t.descriptor.InputSchema }

func (t *Tool) Category() models.ToolCategory { return models.CategoryMeta }

// Permission is conservatively PermissionNetwork, a class that requires
// confirmation: the runtime cannot inspect what an external tool server
// actually does, so every bridged tool requires confirmation.
func (t *Tool) Permission() models.PermissionClass { return models.PermissionNetwork }

func (t *Tool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	resp, err := t.manager.CallTool(ctx, t.descriptor.Name, args)
	if err != nil {
		return nil, err
	}
	if resp.IsError {
		return nil, fmt.Errorf("external tool %q returned an error: %s", t.descriptor.Name, resp.Text())
	}
	return resp.Text(), nil
}

// AllAsTools returns every connected child's tools wrapped as agent.Tool
// implementations, ready for ToolRegistry.Register.
func (m *Manager) AllAsTools() []*Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Tool
	for id, child := range m.children {
		for _, d := range child.Tools() {
			out = append(out, NewTool(m, id, d))
		}
	}
	return out
}
