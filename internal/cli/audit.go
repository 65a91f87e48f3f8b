package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/wire"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit trail",
	Long:  "View and prune the audit trail of versions, branches, workflow and approvals",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit entries newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		entityType, _ := cmd.Flags().GetString("type")
		entityID, _ := cmd.Flags().GetString("entity")
		actorID, _ := cmd.Flags().GetString("actor-id")
		action, _ := cmd.Flags().GetString("action")
		limit, _ := cmd.Flags().GetInt("limit")

		if limit <= 0 {
			limit = 50
		}

		adapter, err := wire.AuditAdapter()
		if err != nil {
			return err
		}
		return adapter.List(NewContext(), primary.AuditFilters{
			EntityType: entityType,
			EntityID:   entityID,
			ActorID:    actorID,
			Action:     action,
			Limit:      limit,
		})
	},
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old audit entries",
	Long:  "Delete audit entries older than the specified number of days (default 90)",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		adapter, err := wire.AuditAdapter()
		if err != nil {
			return err
		}
		return adapter.Prune(NewContext(), days)
	},
}

func init() {
	auditListCmd.Flags().StringP("type", "t", "", "Filter by entity type (version, branch, workflow, approval)")
	auditListCmd.Flags().StringP("entity", "e", "", "Filter by entity ID")
	auditListCmd.Flags().String("actor-id", "", "Filter by actor")
	auditListCmd.Flags().String("action", "", "Filter by action (create, update, delete)")
	auditListCmd.Flags().IntP("limit", "l", 50, "Maximum number of entries")

	auditPruneCmd.Flags().Int("days", 90, "Delete entries older than this many days")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditPruneCmd)
}

// AuditCmd returns the audit command
func AuditCmd() *cobra.Command {
	return auditCmd
}
