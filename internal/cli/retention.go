package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/wire"
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Manage version retention",
	Long: `Set per-content retention policies and prune old versions. A version is
pruned only when it is both beyond the kept count and older than the
day limit. Branch heads are never pruned.`,
}

var retentionSetCmd = &cobra.Command{
	Use:   "set [content-id]",
	Short: "Set a content item's policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxVersions, _ := cmd.Flags().GetInt("max-versions")
		maxDays, _ := cmd.Flags().GetInt("max-days")

		adapter, err := wire.RetentionAdapter()
		if err != nil {
			return err
		}
		return adapter.SetPolicy(NewContext(), args[0], maxVersions, maxDays)
	},
}

var retentionShowCmd = &cobra.Command{
	Use:   "show [content-id]",
	Short: "Show the effective policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.RetentionAdapter()
		if err != nil {
			return err
		}
		return adapter.ShowPolicy(NewContext(), args[0])
	},
}

var retentionCleanCmd = &cobra.Command{
	Use:   "clean [content-id]",
	Short: "Prune old versions",
	Long:  "Prune one content item, or every content item when none is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contentID := ""
		if len(args) > 0 {
			contentID = args[0]
		}

		adapter, err := wire.RetentionAdapter()
		if err != nil {
			return err
		}
		return adapter.Clean(NewContext(), contentID)
	},
}

func init() {
	retentionSetCmd.Flags().Int("max-versions", 5, "Versions to keep")
	retentionSetCmd.Flags().Int("max-days", 30, "Days to keep versions beyond the count")

	retentionCmd.AddCommand(retentionSetCmd)
	retentionCmd.AddCommand(retentionShowCmd)
	retentionCmd.AddCommand(retentionCleanCmd)
}

// RetentionCmd returns the retention command
func RetentionCmd() *cobra.Command {
	return retentionCmd
}
