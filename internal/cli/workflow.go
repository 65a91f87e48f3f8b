package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/wire"
)

var workflowCmd = &cobra.Command{
	Use:     "workflow",
	Aliases: []string{"wf"},
	Short:   "Move content through workflow states",
}

var workflowInitCmd = &cobra.Command{
	Use:   "init [content-id]",
	Short: "Put content into the initial state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assignee, _ := cmd.Flags().GetString("assignee")

		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.Init(NewContext(), args[0], userFlag(cmd), assignee)
	},
}

var workflowTransitionCmd = &cobra.Command{
	Use:     "transition [content-id] [state]",
	Aliases: []string{"mv"},
	Short:   "Move content to a state",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, _ := cmd.Flags().GetString("notes")
		assignee, _ := cmd.Flags().GetString("assignee")

		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.Transition(NewContext(), args[0], args[1], userFlag(cmd), notes, assignee)
	},
}

var workflowStatusCmd = &cobra.Command{
	Use:   "status [content-id]",
	Short: "Show the current state and the allowed next states",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.Status(NewContext(), args[0])
	},
}

var workflowHistoryCmd = &cobra.Command{
	Use:   "history [content-id]",
	Short: "List transitions newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.History(NewContext(), args[0], limit)
	},
}

var workflowStatesCmd = &cobra.Command{
	Use:   "states",
	Short: "List workflow states",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.States(NewContext())
	},
}

var workflowStateAddCmd = &cobra.Command{
	Use:   "state-add [name]",
	Short: "Create a workflow state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		description, _ := cmd.Flags().GetString("description")
		initial, _ := cmd.Flags().GetBool("initial")
		terminal, _ := cmd.Flags().GetBool("terminal")

		adapter, err := wire.WorkflowAdapter()
		if err != nil {
			return err
		}
		return adapter.AddState(NewContext(), primary.CreateStateRequest{
			Name:        args[0],
			Label:       label,
			Description: description,
			IsInitial:   initial,
			IsTerminal:  terminal,
		})
	},
}

func init() {
	workflowInitCmd.Flags().StringP("user", "u", "", "Acting user (defaults to the invoking actor)")
	workflowInitCmd.Flags().String("assignee", "", "User to assign the content to")

	workflowTransitionCmd.Flags().StringP("user", "u", "", "Acting user (defaults to the invoking actor)")
	workflowTransitionCmd.Flags().StringP("notes", "n", "", "Transition notes")
	workflowTransitionCmd.Flags().String("assignee", "", "User to assign the content to")

	workflowHistoryCmd.Flags().IntP("limit", "l", 20, "Maximum number of entries")

	workflowStateAddCmd.Flags().String("label", "", "Display label (defaults to the name)")
	workflowStateAddCmd.Flags().StringP("description", "d", "", "State description")
	workflowStateAddCmd.Flags().Bool("initial", false, "Mark as the initial state")
	workflowStateAddCmd.Flags().Bool("terminal", false, "Mark as a terminal state")

	workflowCmd.AddCommand(workflowInitCmd)
	workflowCmd.AddCommand(workflowTransitionCmd)
	workflowCmd.AddCommand(workflowStatusCmd)
	workflowCmd.AddCommand(workflowHistoryCmd)
	workflowCmd.AddCommand(workflowStatesCmd)
	workflowCmd.AddCommand(workflowStateAddCmd)
}

// WorkflowCmd returns the workflow command
func WorkflowCmd() *cobra.Command {
	return workflowCmd
}
