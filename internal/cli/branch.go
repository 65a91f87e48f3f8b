package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/wire"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches",
	Long:  "Create, merge, protect and delete the branches of a content item",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create [content-id] [name]",
	Short: "Create a branch at an existing version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		description, _ := cmd.Flags().GetString("description")

		adapter, err := wire.BranchAdapter()
		if err != nil {
			return err
		}
		return adapter.Create(NewContext(), primary.CreateBranchRequest{
			ContentID:     args[0],
			Name:          args[1],
			FromVersionID: from,
			Description:   description,
		})
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list [content-id]",
	Short: "List branches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.BranchAdapter()
		if err != nil {
			return err
		}
		return adapter.List(NewContext(), args[0])
	},
}

var branchMergeCmd = &cobra.Command{
	Use:   "merge [content-id] [source] [target]",
	Short: "Merge source into target",
	Long: `Write the source head's data as a new version on target. Differing
heads are reported but do not stop the merge.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		adapter, err := wire.BranchAdapter()
		if err != nil {
			return err
		}
		return adapter.Merge(NewContext(), primary.MergeBranchRequest{
			ContentID: args[0],
			Source:    args[1],
			Target:    args[2],
			Message:   message,
			UserID:    userFlag(cmd),
		})
	},
}

var branchProtectCmd = &cobra.Command{
	Use:   "protect [content-id] [name]",
	Short: "Protect a branch from deletion",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		off, _ := cmd.Flags().GetBool("off")

		adapter, err := wire.BranchAdapter()
		if err != nil {
			return err
		}
		return adapter.Protect(NewContext(), args[0], args[1], !off)
	},
}

var branchDefaultCmd = &cobra.Command{
	Use:   "default [content-id] [name]",
	Short: "Make a branch the default",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.BranchAdapter()
		if err != nil {
			return err
		}
		return adapter.SetDefault(NewContext(), args[0], args[1])
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete [content-id] [name]",
	Short: "Delete a branch (its versions stay)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.BranchAdapter()
		if err != nil {
			return err
		}
		return adapter.Delete(NewContext(), args[0], args[1])
	},
}

func init() {
	branchCreateCmd.Flags().String("from", "", "Version ID the branch starts at (required)")
	branchCreateCmd.Flags().StringP("description", "d", "", "Branch description")
	_ = branchCreateCmd.MarkFlagRequired("from")

	branchMergeCmd.Flags().StringP("message", "m", "", "Merge message")
	branchMergeCmd.Flags().StringP("user", "u", "", "Acting user (defaults to the invoking actor)")

	branchProtectCmd.Flags().Bool("off", false, "Remove protection instead")

	branchCmd.AddCommand(branchCreateCmd)
	branchCmd.AddCommand(branchListCmd)
	branchCmd.AddCommand(branchMergeCmd)
	branchCmd.AddCommand(branchProtectCmd)
	branchCmd.AddCommand(branchDefaultCmd)
	branchCmd.AddCommand(branchDeleteCmd)
}

// BranchCmd returns the branch command
func BranchCmd() *cobra.Command {
	return branchCmd
}
