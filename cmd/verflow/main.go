package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/cli"
	"github.com/example/verflow/internal/config"
	"github.com/example/verflow/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "verflow",
		Short:   "verflow - content versioning and editorial workflow",
		Version: version.String(),
		Long: `verflow keeps an append-only version history per content item, with
branches, diffs, conflict resolution and retention, and moves content
through an editorial state machine guarded by approval gates.`,
		PersistentPreRun: cli.Bootstrap,
		SilenceUsage:     true,
	}
	rootCmd.PersistentFlags().String("config", config.DefaultFileName, "Path to the config file")
	rootCmd.PersistentFlags().String("actor", "", "Acting user for audit records (default $VERFLOW_ACTOR or $USER)")

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ServeCmd())

	// Content commands
	rootCmd.AddCommand(cli.VersionCmd())
	rootCmd.AddCommand(cli.BranchCmd())
	rootCmd.AddCommand(cli.ConflictCmd())
	rootCmd.AddCommand(cli.RetentionCmd())

	// Workflow commands
	rootCmd.AddCommand(cli.WorkflowCmd())
	rootCmd.AddCommand(cli.ApprovalCmd())
	rootCmd.AddCommand(cli.AuditCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
