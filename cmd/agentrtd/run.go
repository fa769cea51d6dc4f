package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/contextmgr"
	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/llm/blockstyle"
	"github.com/haasonsaas/nexus/internal/llm/chatstyle"
	"github.com/haasonsaas/nexus/internal/plugins"
	"github.com/haasonsaas/nexus/internal/replyhandlers"
	"github.com/haasonsaas/nexus/internal/retry"
	"github.com/haasonsaas/nexus/internal/runlog"
	"github.com/haasonsaas/nexus/internal/sessions"
	"github.com/haasonsaas/nexus/internal/timer"
	"github.com/haasonsaas/nexus/internal/tokenizer"
	"github.com/haasonsaas/nexus/internal/tools"
)

const defaultSystemPrompt = "You are a helpful coding assistant operating inside a sandboxed workspace."

func buildRunCmd() *cobra.Command {
	var (
		configPath string
		cwd        string
		sessionID  string
		userID     string
	)

	cmd := &cobra.Command{
		Use:   "run [message]",
		Short: "Run one turn of the agent loop against a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cwd == "" {
				cwd, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("resolve cwd: %w", err)
				}
			}
			if sessionID == "" {
				sessionID = agent.NewRunID()
			}

			out, err := runOnce(cmd.Context(), cfg, cwd, sessionID, userID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrtd.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Workspace root (defaults to the current directory)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (defaults to a fresh one)")
	cmd.Flags().StringVar(&userID, "user", "anonymous", "User id, passed through to plugins")

	return cmd
}

// buildClient constructs the llm.Client for cfg's configured dialect
// (spec §4.1, §6).
func buildClient(cfg *config.Config) llm.Client {
	switch cfg.Provider.Dialect {
	case "blockstyle":
		return blockstyle.New(blockstyle.Config{
			APIBase:   cfg.Provider.APIBase,
			APIKey:    cfg.Provider.APIKey,
			Model:     cfg.Provider.Model,
			MaxTokens: cfg.Provider.MaxTokens,
		})
	default:
		return chatstyle.New(chatstyle.Config{
			APIBase:   cfg.Provider.APIBase,
			APIKey:    cfg.Provider.APIKey,
			Model:     cfg.Provider.Model,
			MaxTokens: cfg.Provider.MaxTokens,
		})
	}
}

// buildPluginRegistry wires the built-in Timer and Notification
// plugins plus any configured shell-script plugins (spec §4.7).
func buildPluginRegistry(cfg *config.Config, store *timer.Store, platform string) (*plugins.Registry, error) {
	registry := plugins.NewRegistry()

	if err := registry.Register(replyhandlers.NewTimerPlugin(replyhandlers.NewTimerHandler(store, platform))); err != nil {
		return nil, err
	}
	if err := registry.Register(replyhandlers.NewNotifyPlugin(replyhandlers.NewNotifyHandler())); err != nil {
		return nil, err
	}
	for _, scriptPath := range cfg.Plugins.ShellScripts {
		adapter, err := replyhandlers.NewShellPluginAdapter(scriptPath)
		if err != nil {
			slog.Warn("skipping shell plugin", "path", scriptPath, "error", err)
			continue
		}
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	if err := registry.Load(plugins.Config{
		Enabled: cfg.Plugins.Enabled,
		Allow:   cfg.Plugins.Allow,
		Deny:    cfg.Plugins.Deny,
	}); err != nil {
		return nil, err
	}
	return registry, nil
}

// baseToolRegistry builds the stateless+workspace-bound tool set a
// fresh session starts from (spec §4.5, §4.6): CalcTool is stateless
// and shared by reference; WorkspaceReadTool is rebuilt per-session
// against the session's cwd by sessions.Manager.Create's rebuild
// callback.
func baseToolRegistry() *agent.Registry {
	registry := agent.NewRegistry()
	registry.Register(tools.CalcTool{})
	registry.Register(tools.NewWorkspaceReadTool(".", 1<<20))
	return registry
}

func rebuildTool(name string, existing agent.Tool, cwd string) agent.Tool {
	if _, ok := existing.(*tools.WorkspaceReadTool); ok {
		return tools.NewWorkspaceReadTool(cwd, 1<<20)
	}
	return existing
}

func runOnce(ctx context.Context, cfg *config.Config, cwd, sessionID, userID, message string) (string, error) {
	client := buildClient(cfg)

	storagePath := cfg.Timer.StoragePath
	if storagePath == "" {
		storagePath = timer.DefaultStoragePath()
	}
	timerStore := timer.NewStore(storagePath)

	pluginRegistry, err := buildPluginRegistry(cfg, timerStore, "cli")
	if err != nil {
		return "", fmt.Errorf("build plugin registry: %w", err)
	}
	defer pluginRegistry.Shutdown()

	scheduler := timer.NewScheduler(timerStore, func(_ context.Context, t timer.Task) {
		slog.Info("timer fired", "id", t.ID, "reason", t.Reason)
	}, timer.WithTickInterval(cfg.Timer.TickInterval))
	scheduler.Start(ctx)
	defer scheduler.Stop()

	sessionMgr := sessions.NewManager()
	baseTools := baseToolRegistry()

	retryCfg := retry.Config{
		MaxAttempts: cfg.Loop.MaxAttempts,
		BaseDelay:   cfg.Loop.BaseDelay,
		MaxDelay:    cfg.Loop.MaxDelay,
		Multiplier:  cfg.Loop.Multiplier,
		Jitter:      true,
	}

	var ctxMgr *contextmgr.Manager
	_, err = sessionMgr.Create(sessionID, cwd, "default", nil, baseTools, rebuildTool, func(s *sessions.Session) *agent.Loop {
		pctx := func() plugins.PluginContext {
			return plugins.PluginContext{
				Platform:  "cli",
				UserID:    userID,
				SessionID: s.ID,
			}
		}
		systemPrompt := defaultSystemPrompt
		if ext := pluginRegistry.PromptExtension(pctx()); ext != "" {
			systemPrompt += "\n\n" + ext
		}

		counter := tokenizer.NewCounter()
		ctxMgr = contextmgr.New(systemPrompt, s.Tools.AsToolSchemas(), cfg.Loop.TokenLimit, counter, client)

		runLogger, err := runlog.Open(filepath.Join(s.Cwd, ".agentrtd-logs"), agent.NewRunID())
		if err != nil {
			slog.Warn("failed to open run logger", "error", err)
		}

		return agent.New(agent.Config{
			Client:      client,
			Context:     ctxMgr,
			Tools:       s.Tools,
			MaxSteps:    cfg.Loop.MaxSteps,
			RetryConfig: retryCfg,
			ReplyChain:  plugins.NewDispatcher(pluginRegistry, pctx),
			RunLogger:   runLoggerOrNil(runLogger),
			Cancel:      s.CancelFlag(),
			Logger:      slog.Default(),
		})
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	ctxMgr.AppendUser(message)
	return sessionMgr.Run(ctx, sessionID)
}

// runLoggerOrNil adapts a possibly-nil *runlog.Logger to
// agent.RunLogger, since agent.New treats a nil interface value
// holding a non-nil *runlog.Logger as present but a genuinely absent
// logger (Open failed) must fall back to the no-op default.
func runLoggerOrNil(l *runlog.Logger) agent.RunLogger {
	if l == nil {
		return nil
	}
	return l
}
