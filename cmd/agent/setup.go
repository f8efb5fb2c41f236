package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reactorhq/agent/internal/agent"
	"github.com/reactorhq/agent/internal/agent/providers"
	"github.com/reactorhq/agent/internal/bridge"
	"github.com/reactorhq/agent/internal/config"
	"github.com/reactorhq/agent/internal/metrics"
	"github.com/reactorhq/agent/internal/planner"
	"github.com/reactorhq/agent/internal/todo"
	"github.com/reactorhq/agent/internal/tools/codeintel"
	"github.com/reactorhq/agent/internal/tools/files"
	"github.com/reactorhq/agent/internal/tools/finish"
	"github.com/reactorhq/agent/internal/tools/gitquery"
	"github.com/reactorhq/agent/internal/tools/shell"
	"github.com/reactorhq/agent/internal/tools/subagenttool"
	"github.com/reactorhq/agent/internal/tools/web"

	"github.com/prometheus/client_golang/prometheus"
)

// runtime bundles everything buildRootCmd's subcommands need: the wired
// registry, the provider, the event bus, and background collaborators that
// outlive a single command invocation (the bridge manager's child processes).
type runtime struct {
	cfg      *config.Config
	provider agent.LLMProvider
	registry *agent.ToolRegistry
	bus      *agent.EventBus
	compress *agent.Compressor
	loopCfg  *agent.LoopConfig
	bridgeM  *bridge.Manager
	store    *todo.Store
	planner  *planner.Planner
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// buildRuntime wires the whole dependency graph exactly once per process,
// the way the teacher's cmd/nexus assembles its gateway in main/onboard: load
// config, pick a provider, register every native tool, start the bridge, and
// subscribe metrics to the event bus.
func buildRuntime(cfgPath string, logger *slog.Logger) (*runtime, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	provider, err := buildProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("build provider: %w", err)
	}

	bus := agent.NewEventBus()
	m := metrics.New(prometheus.DefaultRegisterer)
	bus.Subscribe(metrics.NewEventSubscriber(m))

	var confirmer agent.Confirmer
	if cfg.Approval.Interactive {
		confirmer = agent.ConfirmerFunc(terminalConfirm)
	}
	approvals := agent.NewApprovalChecker(agent.ApprovalPolicy{
		Allowlist:   cfg.Approval.Allowlist,
		Denylist:    cfg.Approval.Denylist,
		AskFallback: cfg.Approval.AskFallback,
	}, confirmer)

	loopCfg := &agent.LoopConfig{
		MaxIterations:           cfg.Loop.MaxIterations,
		ConsecutiveFailureLimit: cfg.Loop.ConsecutiveFailureLimit,
		ToolTimeout:             cfg.Loop.ToolTimeout,
	}
	registry := agent.NewToolRegistry(nil, approvals, bus, loopCfg, logger)

	bridgeM := bridge.NewManager(logger)

	store := todo.New()

	if err := registerNativeTools(registry, cfg, provider, bridgeM, store, logger); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	compress := agent.NewCompressor(provider, agent.DefaultCompressionConfig(), logger)

	return &runtime{
		cfg:      cfg,
		provider: provider,
		registry: registry,
		bus:      bus,
		compress: compress,
		loopCfg:  loopCfg,
		bridgeM:  bridgeM,
		store:    store,
		planner:  planner.New(provider, logger),
		metrics:  m,
		logger:   logger,
	}, nil
}

func buildProvider(cfg config.ProviderConfig) (agent.LLMProvider, error) {
	switch cfg.Name {
	case "openai":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
		}), nil
	case "anthropic", "":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q (want anthropic or openai)", cfg.Name)
	}
}

func registerNativeTools(registry *agent.ToolRegistry, cfg *config.Config, provider agent.LLMProvider, bridgeM *bridge.Manager, store *todo.Store, logger *slog.Logger) error {
	filesCfg := files.Config{Workspace: cfg.Workspace.Root, MaxReadBytes: 1 << 20}
	shellCfg := shell.Config{Workspace: cfg.Workspace.Root}
	gitCfg := gitquery.Config{Workspace: cfg.Workspace.Root}
	codeintelCfg := codeintel.Config{Workspace: cfg.Workspace.Root}
	limiter := web.NewRateLimiter(2, 4)
	extractor := web.NewExtractor(limiter)

	nativeTools := []agent.Tool{
		files.NewReadTool(filesCfg),
		files.NewCreateTool(filesCfg),
		files.NewWriteTool(filesCfg),
		files.NewPatchTool(filesCfg),
		files.NewFindFilesTool(filesCfg),
		files.NewSearchInFilesTool(filesCfg),
		shell.NewExecutorTool(shellCfg),
		shell.NewMultiCommandTool(shellCfg),
		gitquery.NewStatusTool(gitCfg),
		gitquery.NewLogTool(gitCfg),
		gitquery.NewDiffTool(gitCfg),
		web.NewSearchTool(web.SearchConfig{}, limiter),
		web.NewFetchTool(web.FetchConfig{}, extractor),
		codeintel.NewAnalyzeTool(codeintelCfg),
		finish.New(),
		todo.NewManagerTool(store),
		subagenttool.New(provider, registry, agent.DefaultSubAgentConfig(), logger),
	}
	for _, t := range nativeTools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}

	if len(cfg.MCPServers) > 0 {
		serverCfgs := make([]*bridge.ServerConfig, 0, len(cfg.MCPServers))
		for _, s := range cfg.MCPServers {
			serverCfgs = append(serverCfgs, &bridge.ServerConfig{
				ID:      s.ID,
				Command: s.Command,
				Args:    s.Args,
				Env:     s.Env,
			})
		}
		bridgeM.Start(context.Background(), serverCfgs)
		for _, t := range bridgeM.AllAsTools() {
			if err := registry.Register(t); err != nil {
				logger.Warn("failed to register bridge tool", "tool", t.Name(), "error", err)
			}
		}
	}

	return nil
}
