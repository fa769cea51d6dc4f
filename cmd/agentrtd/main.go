// Package main provides the CLI entry point for agentrtd, the
// reference runtime binary wiring together the Context Manager, Agent
// Loop, Session Manager, Plugin Registry and Timer Scheduler
// described in the core specification. The HTTP control surface,
// persistent session store and concrete channel adapters are
// external collaborators and are intentionally not reproduced here;
// this binary exercises the engine end-to-end for one request at a
// time.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "agentrtd",
		Short:        "agentrtd - reason-act agent runtime",
		Version:      fmt.Sprintf("%s", version),
		SilenceUsage: true,
	}
	root.AddCommand(buildRunCmd(), buildTimersCmd())
	return root
}
