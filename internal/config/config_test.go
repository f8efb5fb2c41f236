package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "anthropic", cfg.Provider.Name)
	assert.Equal(t, 15, cfg.Loop.MaxIterations)
	assert.Equal(t, 20, cfg.SubAgent.MaxTurns)
	assert.True(t, cfg.Approval.Interactive)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/agent.yaml")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider.Name)
	assert.Equal(t, 15, cfg.Loop.MaxIterations)
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	path := t.TempDir() + "/agent.yaml"
	content := []byte("provider:\n  name: openai\n  model: gpt-4o\nloop:\n  max_iterations: 30\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
	assert.Equal(t, 30, cfg.Loop.MaxIterations)
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Provider.APIKey)
}
