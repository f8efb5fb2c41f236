package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Manager owns every configured external tool child process and routes
// call_tool requests to the child that advertised the tool.
type Manager struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	children map[string]*Child
}

// NewManager builds an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger.With("component", "bridge"), children: make(map[string]*Child)}
}

// Start spawns every configured server, continuing past individual failures
// so one misbehaving external tool server does not prevent the others from
// coming up.
func (m *Manager) Start(ctx context.Context, configs []*ServerConfig) {
	for _, cfg := range configs {
		if err := m.Connect(ctx, cfg); err != nil {
			m.logger.Error("failed to start external tool server", "server", cfg.ID, "error", err)
		}
	}
}

// Connect starts and registers one child.
func (m *Manager) Connect(ctx context.Context, cfg *ServerConfig) error {
	m.mu.RLock()
	_, exists := m.children[cfg.ID]
	m.mu.RUnlock()
	if exists {
		return nil
	}

	child := NewChild(cfg, m.logger)
	if err := child.Start(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.children[cfg.ID] = child
	m.mu.Unlock()
	return nil
}

// Stop tears down every child.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, child := range m.children {
		if err := child.Stop(); err != nil {
			m.logger.Error("failed to stop external tool server", "server", id, "error", err)
		}
	}
	m.children = make(map[string]*Child)
}

// AllTools returns every child's advertised tool catalog, keyed by server ID.
func (m *Manager) AllTools() map[string][]ToolDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]ToolDescriptor, len(m.children))
	for id, child := range m.children {
		out[id] = child.Tools()
	}
	return out
}

// FindTool locates which connected child advertises the named tool.
func (m *Manager) FindTool(name string) (serverID string, tool *ToolDescriptor) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, child := range m.children {
		for _, t := range child.Tools() {
			t := t
			if t.Name == name {
				return id, &t
			}
		}
	}
	return "", nil
}

// CallTool dispatches a call_tool request to the child that owns the named
// tool, regardless of which server it asks by name.
func (m *Manager) CallTool(ctx context.Context, name string, args json.RawMessage) (*CallToolResponse, error) {
	serverID, tool := m.FindTool(name)
	if tool == nil {
		return nil, fmt.Errorf("no connected external tool server advertises tool %q", name)
	}
	m.mu.RLock()
	child := m.children[serverID]
	m.mu.RUnlock()
	return child.CallTool(ctx, name, args)
}
