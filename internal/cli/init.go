package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/config"
	"github.com/example/verflow/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file and initialize the database",
		Long: `Write the default configuration (unless one exists) and create the
database with its schema and the configured workflow states.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			force, _ := cmd.Flags().GetBool("force")

			_, statErr := os.Stat(path)
			if force || os.IsNotExist(statErr) {
				if err := config.SaveConfig(path, config.Default()); err != nil {
					return err
				}
				fmt.Printf("✓ Config written to %s\n", path)
			} else {
				fmt.Printf("Config %s already exists (use --force to overwrite)\n", path)
			}

			c, err := wire.Services()
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			states, err := c.Workflow.ListStates(NewContext())
			if err != nil {
				return err
			}

			fmt.Printf("✓ Database ready at %s with %d workflow states\n", c.Config.Database.Path, len(states))
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println(`  verflow version create 42 --data '{"title":"Hello"}'`)
			fmt.Println("  verflow workflow init 42")
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return cmd
}
