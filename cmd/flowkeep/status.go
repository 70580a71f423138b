package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/flowkeep/flowkeep/pkg/probe"
	"github.com/flowkeep/flowkeep/pkg/registry"
	"github.com/flowkeep/flowkeep/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show restore activity for this environment",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Println("Connectivity:")
	for _, c := range []probe.Checker{
		probe.NewTCPChecker(cfg.Database.Addr()),
		probe.NewHTTPChecker(cfg.Application.HealthURL),
	} {
		res := c.Check(ctx)
		mark := "✓"
		if !res.Ready {
			mark = "✗"
		}
		fmt.Printf("  %s %-10s %s\n", mark, c.Type(), res.Message)
	}
	fmt.Println()

	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	active, err := reg.ActiveRestore(cfg.Environment)
	if err != nil {
		return err
	}
	if active != nil {
		fmt.Printf("Active restore in %s:\n", cfg.Environment)
		fmt.Printf("  Run:      %s\n", active.ID)
		fmt.Printf("  Phase:    %s\n", active.Phase)
		fmt.Printf("  Snapshot: %s\n", active.SnapshotDir)
		fmt.Printf("  Started:  %s\n", active.StartedAt.Format("2006-01-02 15:04:05 MST"))
	} else {
		fmt.Printf("No active restore in %s\n", cfg.Environment)
	}

	runs, err := reg.ListRestores()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if len(runs) > 5 {
		runs = runs[:5]
	}

	fmt.Println("\nRecent runs:")
	for _, run := range runs {
		line := fmt.Sprintf("  %s  %s  %s", run.StartedAt.Format("2006-01-02 15:04"), run.ID, run.Phase)
		if run.Phase == types.PhaseFailed {
			line += fmt.Sprintf(" (from %s)", run.FailedFrom)
		}
		fmt.Println(line)
	}
	return nil
}
