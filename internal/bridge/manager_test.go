package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ConnectStartsChildAndRegistersTools(t *testing.T) {
	m := NewManager(nil)
	cfg := &ServerConfig{ID: "echoer", Command: "sh", Args: []string{"-c", echoLoopScript}, Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx, cfg))
	defer m.Stop()

	all := m.AllTools()
	require.Contains(t, all, "echoer")
	assert.Len(t, all["echoer"], 1)

	serverID, tool := m.FindTool("echo")
	assert.Equal(t, "echoer", serverID)
	require.NotNil(t, tool)
}

func TestManager_CallToolRoutesToOwningChild(t *testing.T) {
	m := NewManager(nil)
	cfg := &ServerConfig{ID: "echoer", Command: "sh", Args: []string{"-c", echoLoopScript}, Timeout: 2 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx, cfg))
	defer m.Stop()

	resp, err := m.CallTool(ctx, "echo", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "echoed", resp.Text())
}

func TestManager_CallToolUnknownNameErrors(t *testing.T) {
	m := NewManager(nil)
	_, err := m.CallTool(context.Background(), "nope", json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestManager_AllAsToolsWrapsEveryDescriptor(t *testing.T) {
	m := NewManager(nil)
	cfg := &ServerConfig{ID: "echoer", Command: "sh", Args: []string{"-c", echoLoopScript}, Timeout: 2 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx, cfg))
	defer m.Stop()

	tools := m.AllAsTools()
	require.Len(t, tools, 1)
	assert.Equal(t, "mcp:echoer:echo", tools[0].Name())
}
