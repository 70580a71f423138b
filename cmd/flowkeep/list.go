package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flowkeep/flowkeep/pkg/registry"
	"github.com/flowkeep/flowkeep/pkg/snapshot"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded snapshots",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	recs, err := reg.ListSnapshots()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No snapshots recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tENVIRONMENT\tSIZE\tSTATE\tDIR")
	for _, rec := range recs {
		state := "ok"
		if _, err := os.Stat(rec.Dir); err != nil {
			state = "missing"
		} else if snapshot.IsFailed(rec.Dir) {
			state = "failed"
		} else if snapshot.InUse(rec.Dir) {
			state = "in-use"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			rec.ID,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Environment,
			rec.SizeBytes,
			state,
			rec.Dir,
		)
	}
	return w.Flush()
}
