package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowkeep/flowkeep/pkg/proc"
	"github.com/flowkeep/flowkeep/pkg/registry"
	"github.com/flowkeep/flowkeep/pkg/restore"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-dir>",
	Short: "Restore the deployment from a snapshot",
	Long: `Restore the deployment from a snapshot directory. The pipeline
validates the snapshot, stops the application, replays the database
dump, extracts the data archive, restarts the application and waits
for it to report ready.

The snapshot's recorded encryption key must match this environment's
active key; a mismatch aborts before anything is touched and exits 3.
Use --skip-secret-check only for same-environment disaster recovery.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().Bool("skip-secret-check", false,
		"Bypass the encryption-key consistency gate (same-environment recovery only)")

	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	skip, _ := cmd.Flags().GetBool("skip-secret-check")

	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	exec := restore.NewExecutor(cfg, proc.NewExecRunner(), reg)
	run, err := exec.Run(cmd.Context(), args[0], restore.Options{SkipSecretCheck: skip})
	if err != nil {
		if run != nil {
			fmt.Printf("Restore %s failed in phase %s\n", run.ID, run.FailedFrom)
			if run.FailedFrom.Destructive() {
				fmt.Println("The database holds the replayed snapshot data; no automatic rollback was performed.")
			}
		}
		return err
	}

	fmt.Printf("✓ Restore %s verified\n", run.ID)
	fmt.Printf("  Snapshot: %s\n", run.SnapshotDir)
	fmt.Printf("  Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	if len(run.RowCounts) > 0 {
		fmt.Println("  Row counts:")
		tables := make([]string, 0, len(run.RowCounts))
		for t := range run.RowCounts {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			fmt.Printf("    %-20s %d\n", t, run.RowCounts[t])
		}
	}
	for _, w := range run.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
	return nil
}
