package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowkeep/flowkeep/pkg/config"
	"github.com/flowkeep/flowkeep/pkg/log"
	"github.com/flowkeep/flowkeep/pkg/metrics"
	"github.com/flowkeep/flowkeep/pkg/secret"
	"github.com/flowkeep/flowkeep/pkg/snapshot"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// cfg is the effective configuration, loaded before any subcommand runs.
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Errors land on the operator's terminal only. In particular a
		// secret mismatch carries both key values verbatim and must not
		// travel through the structured log pipeline.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps failure classes to documented exit codes: 2 for a
// snapshot that fails verification, 3 for a secret consistency
// mismatch, 1 for everything else.
func exitCode(err error) int {
	var mismatch *secret.MismatchError
	if errors.As(err, &mismatch) {
		return 3
	}
	var verr *snapshot.VerificationError
	if errors.As(err, &verr) {
		return 2
	}
	var notLoadable *notVerifiableError
	if errors.As(err, &notLoadable) {
		return 2
	}
	return 1
}

// notVerifiableError marks a snapshot the verify command could not even
// load; it shares the verification-failure exit code.
type notVerifiableError struct {
	err error
}

func (e *notVerifiableError) Error() string { return e.err.Error() }
func (e *notVerifiableError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "flowkeep",
	Short: "Flowkeep - backup, restore and migration for workflow deployments",
	Long: `Flowkeep builds self-contained snapshots of a workflow-automation
deployment (database dump, data files, configuration), verifies them,
restores them with an operator-safe pipeline, and sweeps expired ones.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Log.Level = lvl
		}
		if cmd.Flags().Changed("log-json") {
			cfg.Log.JSON, _ = cmd.Flags().GetBool("log-json")
		}
		log.Init(log.Config{
			Level:      log.Level(cfg.Log.Level),
			JSONOutput: cfg.Log.JSON,
		})

		if cfg.MetricsAddr != "" {
			metrics.Serve(cfg.MetricsAddr)
		}
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"flowkeep version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs instead of console output")
}
