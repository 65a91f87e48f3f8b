package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/wire"
)

var conflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "Detect and resolve version conflicts",
}

var conflictDetectCmd = &cobra.Command{
	Use:   "detect [source-version-id] [target-version-id]",
	Short: "Compare two versions for conflicts",
	Long:  "Compare two versions. Without a target there is nothing to conflict with.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) > 1 {
			target = args[1]
		}

		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		_, err = adapter.Detect(NewContext(), args[0], target)
		return err
	},
}

var conflictResolveCmd = &cobra.Command{
	Use:   "resolve [source-version-id] [target-version-id]",
	Short: "Resolve a conflict with a strategy",
	Long: `Resolve a conflict and write the result on the target's branch.

Strategies:
  merge   source keys override target keys
  source  take the source data
  target  take the target data
  newer   take whichever version was created last`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, _ := cmd.Flags().GetString("strategy")

		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.Resolve(NewContext(), primary.ResolveConflictRequest{
			SourceVersionID: args[0],
			TargetVersionID: args[1],
			Strategy:        strategy,
			UserID:          userFlag(cmd),
		})
	},
}

func init() {
	conflictResolveCmd.Flags().StringP("strategy", "s", "merge", "Resolution strategy (merge, source, target, newer)")
	conflictResolveCmd.Flags().StringP("user", "u", "", "Acting user (defaults to the invoking actor)")

	conflictCmd.AddCommand(conflictDetectCmd)
	conflictCmd.AddCommand(conflictResolveCmd)
}

// ConflictCmd returns the conflict command
func ConflictCmd() *cobra.Command {
	return conflictCmd
}
