package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reactorhq/agent/internal/agent"
)

var (
	cfgPath    string
	metricsBus string
)

// buildRootCmd assembles the cobra command tree, grounded on the teacher's
// cmd/nexus/main.go buildRootCmd separation of command construction from
// main().
func buildRootCmd(logger *slog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "agent",
		Short:        "agent - an autonomous coding agent runtime",
		Long:         `agent drives a ReAct loop over a tool registry to complete one coding task at a time.`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to agent.yaml (defaults to ./agent.yaml)")
	rootCmd.PersistentFlags().StringVar(&metricsBus, "metrics-addr", "", "address to serve /metrics on, e.g. :9090 (disabled if empty)")

	rootCmd.AddCommand(
		buildRunCmd(logger),
		buildToolsCmd(logger),
		buildMCPCmd(logger),
	)
	return rootCmd
}

func buildRunCmd(logger *slog.Logger) *cobra.Command {
	var planMode bool
	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run one task to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cfgPath, logger)
			if err != nil {
				return err
			}
			serveMetrics(metricsBus, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loop := agent.NewLoop(rt.provider, rt.registry, rt.compress, rt.bus, rt.loopCfg, logger)

			mode := agent.ModeNormal
			if planMode {
				mode = agent.ModePlan
			}

			result := loop.Run(ctx, args[0], mode)
			rt.bridgeM.Stop()

			fmt.Println(result.Summary)
			if !result.Success {
				return fmt.Errorf("task did not complete: %s", result.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&planMode, "plan", false, "use the planning system prompt instead of the normal one")
	return cmd
}

func buildToolsCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{Use: "tools", Short: "Inspect the tool catalog"}
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every registered tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cfgPath, logger)
			if err != nil {
				return err
			}
			defer rt.bridgeM.Stop()
			for _, def := range rt.registry.Definitions() {
				fmt.Printf("%-24s [%s/%s]  %s\n", def.Name, def.Category, def.Permission, def.Description)
			}
			return nil
		},
	})
	return root
}

func buildMCPCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{Use: "mcp", Short: "Inspect configured external tool bridge servers"}
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers and the tools they expose",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cfgPath, logger)
			if err != nil {
				return err
			}
			defer rt.bridgeM.Stop()
			if len(rt.cfg.MCPServers) == 0 {
				fmt.Println("no mcp_servers configured")
				return nil
			}
			for server, tools := range rt.bridgeM.AllTools() {
				fmt.Printf("%s:\n", server)
				for _, t := range tools {
					fmt.Printf("  - %s: %s\n", t.Name, t.Description)
				}
			}
			return nil
		},
	})
	return root
}
