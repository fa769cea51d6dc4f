package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/timer"
)

func buildTimersCmd() *cobra.Command {
	var storagePath string

	cmd := &cobra.Command{
		Use:   "timers",
		Short: "Inspect the persisted timer store",
	}
	cmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Path to timers.json (defaults to ~/.ye-linghua/timers.json)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every scheduled timer",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openStore(storagePath)
			tasks := store.All()
			sort.Slice(tasks, func(i, j int) bool { return tasks[i].TriggerTime.Before(tasks[j].TriggerTime) })
			for _, t := range tasks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", t.ID, t.TriggerTime.Format(time.RFC3339), t.Repeat, t.Reason)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a timer by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openStore(storagePath)
			ok, err := store.RemoveByPrefix(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no such timer: %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func openStore(path string) *timer.Store {
	if path == "" {
		path = timer.DefaultStoragePath()
	}
	return timer.NewStore(path)
}
