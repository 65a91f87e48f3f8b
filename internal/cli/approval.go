package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/wire"
)

var approvalCmd = &cobra.Command{
	Use:   "approval",
	Short: "Manage approval gates",
	Long: `Define approval gates in front of workflow states, open requests and
record decisions. A transition into a gated state is refused until its
gate is satisfied.`,
}

var approvalCreateCmd = &cobra.Command{
	Use:   "create [name] [gated-state]",
	Short: "Define a gate in front of a state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")

		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.CreateGate(NewContext(), primary.CreateApprovalWorkflowRequest{
			Name:           args[0],
			GatedStateName: args[1],
			Mode:           mode,
		})
	},
}

var approvalStepCmd = &cobra.Command{
	Use:   "step [workflow-id] [name]",
	Short: "Add a step to a gate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		order, _ := cmd.Flags().GetInt("order")
		required, _ := cmd.Flags().GetInt("required")
		logic, _ := cmd.Flags().GetString("logic")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		escalate, _ := cmd.Flags().GetString("escalate-to")

		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.AddStep(NewContext(), primary.AddStepRequest{
			WorkflowID:        args[0],
			Name:              args[1],
			StepOrder:         order,
			RequiredApprovals: required,
			ApprovalLogic:     logic,
			TimeoutSeconds:    int(timeout.Seconds()),
			EscalateToUserID:  escalate,
		})
	},
}

var approvalRequestCmd = &cobra.Command{
	Use:   "request [content-id] [workflow-id]",
	Short: "Open an approval request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.Request(NewContext(), primary.RequestApprovalRequest{
			ContentID:   args[0],
			WorkflowID:  args[1],
			RequestedBy: userFlag(cmd),
		})
	},
}

var approvalDecideCmd = &cobra.Command{
	Use:   "decide [request-id] [step-id] [approved|rejected|changes_requested]",
	Short: "Record a decision on a step",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		comments, _ := cmd.Flags().GetString("comments")

		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.Decide(NewContext(), primary.RecordDecisionRequest{
			RequestID: args[0],
			StepID:    args[1],
			Decision:  args[2],
			UserID:    userFlag(cmd),
			Comments:  comments,
		})
	},
}

var approvalStatusCmd = &cobra.Command{
	Use:   "status [content-id] [state]",
	Short: "Show the gate status for content entering a state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.Gate(NewContext(), args[0], args[1])
	},
}

var approvalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List gates with their steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.Gates(NewContext())
	},
}

func init() {
	approvalCreateCmd.Flags().String("mode", "sequential", "Step mode (sequential, parallel)")

	approvalStepCmd.Flags().Int("order", 0, "Step position (0 appends)")
	approvalStepCmd.Flags().Int("required", 1, "Approvals required")
	approvalStepCmd.Flags().String("logic", "any", "Approval logic (any, all)")
	approvalStepCmd.Flags().Duration("timeout", 0, "Escalate when the step is open longer than this")
	approvalStepCmd.Flags().String("escalate-to", "", "User to escalate to on timeout")

	approvalRequestCmd.Flags().StringP("user", "u", "", "Requesting user (defaults to the invoking actor)")

	approvalDecideCmd.Flags().StringP("user", "u", "", "Deciding user (defaults to the invoking actor)")
	approvalDecideCmd.Flags().StringP("comments", "c", "", "Decision comments")

	approvalCmd.AddCommand(approvalCreateCmd)
	approvalCmd.AddCommand(approvalStepCmd)
	approvalCmd.AddCommand(approvalRequestCmd)
	approvalCmd.AddCommand(approvalDecideCmd)
	approvalCmd.AddCommand(approvalStatusCmd)
	approvalCmd.AddCommand(approvalListCmd)
}

// ApprovalCmd returns the approval command
func ApprovalCmd() *cobra.Command {
	return approvalCmd
}
