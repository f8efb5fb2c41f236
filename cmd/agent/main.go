// Package main provides the CLI entry point for the agent runtime.
//
// agent drives a single autonomous coding task end to end: a ReAct loop over
// a registry of file, shell, git, web, and code-intelligence tools, with
// loop detection, context compression, and optional sub-agent delegation.
//
// # Basic usage
//
// Run a task:
//
//	agent run "add a health check endpoint" --config agent.yaml
//
// Inspect the tool catalog:
//
//	agent tools list
//
// Inspect configured MCP servers:
//
//	agent mcp list
//
// # Environment variables
//
//   - AGENT_PROVIDER_API_KEY, ANTHROPIC_API_KEY, OPENAI_API_KEY: provider credentials
//   - AGENT_<SECTION>_<KEY> : overrides a config key that has a built-in
//     default or appears in the config file, e.g. AGENT_WORKSPACE_ROOT
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd(logger)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// serveMetrics exposes the /metrics surface named in the spec's observability
// section. It runs for the lifetime of a `run` invocation and is best-effort:
// a bind failure is logged, not fatal, since metrics are diagnostic only.
func serveMetrics(addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
}
