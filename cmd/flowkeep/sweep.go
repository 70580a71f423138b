package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowkeep/flowkeep/pkg/registry"
	"github.com/flowkeep/flowkeep/pkg/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete snapshots past their retention age",
	Long: `Delete snapshot directories older than the retention age. Snapshots
referenced by a running restore are skipped, and failed partial builds
are kept for the configured minimum retention so they can be inspected.

Sweeping is idempotent; a second run directly after finds nothing.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().Duration("max-age", 0,
		"Age threshold (default: retention_days from configuration)")

	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	maxAge, _ := cmd.Flags().GetDuration("max-age")
	if maxAge == 0 {
		maxAge = time.Duration(cfg.RetentionDays) * 24 * time.Hour
	}

	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	n, err := sweep.NewSweeper(cfg, reg).Sweep(maxAge)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Sweep complete: %d snapshot(s) deleted\n", n)
	return nil
}
