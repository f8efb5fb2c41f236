// Package config loads the agent CLI's layered configuration: built-in
// defaults, a YAML file, then environment variables, the way
// None9527-NGOClaw's gateway/internal/infrastructure/config.Load layers
// github.com/spf13/viper sources. Values are unmarshalled into Go structs
// with gopkg.in/yaml.v3-compatible tags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the agent CLI entrypoint.
type Config struct {
	Provider   ProviderConfig   `mapstructure:"provider" yaml:"provider"`
	Loop       LoopConfig       `mapstructure:"loop" yaml:"loop"`
	SubAgent   SubAgentConfig   `mapstructure:"subagent" yaml:"subagent"`
	Workspace  WorkspaceConfig  `mapstructure:"workspace" yaml:"workspace"`
	Approval   ApprovalConfig   `mapstructure:"approval" yaml:"approval"`
	MCPServers []MCPServerEntry `mapstructure:"mcp_servers" yaml:"mcp_servers"`
}

// ProviderConfig selects and configures the LLM provider.
type ProviderConfig struct {
	Name       string `mapstructure:"name" yaml:"name"` // "anthropic" or "openai"
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	Model      string `mapstructure:"model" yaml:"model"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// LoopConfig mirrors internal/agent.LoopConfig's tunables as on-disk values.
type LoopConfig struct {
	MaxIterations           int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	ConsecutiveFailureLimit int           `mapstructure:"consecutive_failure_limit" yaml:"consecutive_failure_limit"`
	ToolTimeout             time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`
}

// SubAgentConfig mirrors internal/agent.SubAgentConfig's tunables.
type SubAgentConfig struct {
	MaxTurns int           `mapstructure:"max_turns" yaml:"max_turns"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// WorkspaceConfig scopes the filesystem/shell/git tools to a directory.
type WorkspaceConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

// ApprovalConfig configures the HITL allow/deny policy.
type ApprovalConfig struct {
	Allowlist   []string `mapstructure:"allowlist" yaml:"allowlist"`
	Denylist    []string `mapstructure:"denylist" yaml:"denylist"`
	AskFallback bool     `mapstructure:"ask_fallback" yaml:"ask_fallback"`
	Interactive bool     `mapstructure:"interactive" yaml:"interactive"`
}

// MCPServerEntry is one external tool bridge server configuration entry
// (spec.md §4.2 "Configuration entry").
type MCPServerEntry struct {
	ID      string            `mapstructure:"id" yaml:"id"`
	Command string            `mapstructure:"command" yaml:"command"`
	Args    []string          `mapstructure:"args" yaml:"args"`
	Env     map[string]string `mapstructure:"env" yaml:"env"`
}

// Default returns the built-in configuration every layer overrides.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{Name: "anthropic", MaxRetries: 3},
		Loop: LoopConfig{
			MaxIterations:           15,
			ConsecutiveFailureLimit: 2,
			ToolTimeout:             30 * time.Second,
		},
		SubAgent: SubAgentConfig{
			MaxTurns: 20,
			Timeout:  300 * time.Second,
		},
		Workspace: WorkspaceConfig{Root: "."},
		Approval:  ApprovalConfig{AskFallback: false, Interactive: true},
	}
}

// Load layers defaults -> config file -> environment variables, following
// the teacher pack's viper.New / SetDefault / ReadInConfig / AutomaticEnv
// sequence (None9527-NGOClaw gateway/internal/infrastructure/config.Load).
// path is the config file; "" searches "./agent.yaml" then
// "~/.agent/agent.yaml". A missing file is not an error — defaults and env
// vars still apply.
func Load(path string) (*Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetDefault("provider.name", defaults.Provider.Name)
	v.SetDefault("provider.max_retries", defaults.Provider.MaxRetries)
	v.SetDefault("loop.max_iterations", defaults.Loop.MaxIterations)
	v.SetDefault("loop.consecutive_failure_limit", defaults.Loop.ConsecutiveFailureLimit)
	v.SetDefault("loop.tool_timeout", defaults.Loop.ToolTimeout)
	v.SetDefault("subagent.max_turns", defaults.SubAgent.MaxTurns)
	v.SetDefault("subagent.timeout", defaults.SubAgent.Timeout)
	v.SetDefault("workspace.root", defaults.Workspace.Root)
	v.SetDefault("approval.ask_fallback", defaults.Approval.AskFallback)
	v.SetDefault("approval.interactive", defaults.Approval.Interactive)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agent")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".agent"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("provider.api_key", "AGENT_PROVIDER_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = defaults.Provider.Name
	}
	return &cfg, nil
}
