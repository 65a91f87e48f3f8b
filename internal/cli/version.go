package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/wire"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Manage content versions",
	Long:    "Create, inspect, compare and revert the versions of a content item",
}

var versionCreateCmd = &cobra.Command{
	Use:   "create [content-id]",
	Short: "Append a new version",
	Long: `Append a new version. The payload is a JSON object given with --data
or read from --file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _ := cmd.Flags().GetString("data")
		file, _ := cmd.Flags().GetString("file")
		branch, _ := cmd.Flags().GetString("branch")
		notes, _ := cmd.Flags().GetString("notes")

		if file != "" {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			data = string(raw)
		}
		if data == "" {
			return fmt.Errorf("one of --data or --file is required")
		}

		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.Create(NewContext(), args[0], userFlag(cmd), branch, notes, data)
	},
}

var versionShowCmd = &cobra.Command{
	Use:   "show [content-id] [number]",
	Short: "Show one version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := parseNumber("version", args[1])
		if err != nil {
			return err
		}
		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		_, err = adapter.Show(NewContext(), args[0], number)
		return err
	},
}

var versionListCmd = &cobra.Command{
	Use:   "list [content-id]",
	Short: "List versions newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.List(NewContext(), args[0], limit, offset)
	},
}

var versionCompareCmd = &cobra.Command{
	Use:   "compare [content-id] [from] [to]",
	Short: "Diff two versions",
	Long:  "Diff two versions field by field, or line by line with --field",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, _ := cmd.Flags().GetString("field")
		from, err := parseNumber("from", args[1])
		if err != nil {
			return err
		}
		to, err := parseNumber("to", args[2])
		if err != nil {
			return err
		}

		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.Compare(NewContext(), args[0], from, to, field)
	},
}

var versionRevertCmd = &cobra.Command{
	Use:   "revert [content-id] [number]",
	Short: "Write an old version's data as the newest version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, _ := cmd.Flags().GetString("notes")
		number, err := parseNumber("version", args[1])
		if err != nil {
			return err
		}

		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.Revert(NewContext(), args[0], number, userFlag(cmd), notes)
	},
}

var versionTimelineCmd = &cobra.Command{
	Use:   "timeline [content-id]",
	Short: "Show one summary line per version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.Timeline(NewContext(), args[0])
	},
}

var versionAutosaveCmd = &cobra.Command{
	Use:   "autosave [content-id]",
	Short: "Store an unnumbered draft",
	Long: `Store an unnumbered draft. Each author keeps one autosave per content
and branch; saving again replaces it. The payload is a JSON object given with
--data or read from --file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _ := cmd.Flags().GetString("data")
		file, _ := cmd.Flags().GetString("file")
		branch, _ := cmd.Flags().GetString("branch")

		if file != "" {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			data = string(raw)
		}
		if data == "" {
			return fmt.Errorf("one of --data or --file is required")
		}

		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.Autosave(NewContext(), args[0], userFlag(cmd), branch, data)
	},
}

var versionDraftCmd = &cobra.Command{
	Use:   "draft [content-id]",
	Short: "Show the newest autosave",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		_, err = adapter.LatestAutosave(NewContext(), args[0])
		return err
	},
}

var versionPromoteCmd = &cobra.Command{
	Use:   "promote [autosave-id]",
	Short: "Turn an autosave into a numbered version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, _ := cmd.Flags().GetString("notes")
		// An empty user keeps the autosave's author.
		user, _ := cmd.Flags().GetString("user")

		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.Promote(NewContext(), args[0], user, notes)
	},
}

var versionSizeCmd = &cobra.Command{
	Use:   "size [content-id] [number]",
	Short: "Show a version's payload size per field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := parseNumber("version", args[1])
		if err != nil {
			return err
		}
		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.Size(NewContext(), args[0], number)
	},
}

var versionStorageCmd = &cobra.Command{
	Use:   "storage [content-id]",
	Short: "Show the bytes a content item occupies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("top")

		adapter, err := wire.VersionAdapter()
		if err != nil {
			return err
		}
		return adapter.Storage(NewContext(), args[0], top)
	},
}

func parseNumber(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func init() {
	versionCreateCmd.Flags().String("data", "", "Version payload as a JSON object")
	versionCreateCmd.Flags().StringP("file", "f", "", "Read the payload from a JSON file")
	versionCreateCmd.Flags().StringP("branch", "b", "", "Branch to write to (default branch if empty)")
	versionCreateCmd.Flags().StringP("notes", "n", "", "Version notes")
	versionCreateCmd.Flags().StringP("user", "u", "", "Author (defaults to the invoking actor)")

	versionListCmd.Flags().IntP("limit", "l", 20, "Maximum number of versions")
	versionListCmd.Flags().Int("offset", 0, "Number of versions to skip")

	versionCompareCmd.Flags().String("field", "", "Compare one text field line by line")

	versionRevertCmd.Flags().StringP("notes", "n", "", "Notes for the new version")
	versionRevertCmd.Flags().StringP("user", "u", "", "Acting user (defaults to the invoking actor)")

	versionAutosaveCmd.Flags().String("data", "", "Draft payload as a JSON object")
	versionAutosaveCmd.Flags().StringP("file", "f", "", "Read the payload from a JSON file")
	versionAutosaveCmd.Flags().StringP("branch", "b", "", "Branch to save against (default branch if empty)")
	versionAutosaveCmd.Flags().StringP("user", "u", "", "Author (defaults to the invoking actor)")

	versionPromoteCmd.Flags().StringP("notes", "n", "", "Notes for the new version")
	versionPromoteCmd.Flags().StringP("user", "u", "", "Author of the new version (defaults to the autosave's author)")

	versionStorageCmd.Flags().Int("top", 10, "Number of largest versions to list")

	versionCmd.AddCommand(versionCreateCmd)
	versionCmd.AddCommand(versionShowCmd)
	versionCmd.AddCommand(versionListCmd)
	versionCmd.AddCommand(versionCompareCmd)
	versionCmd.AddCommand(versionRevertCmd)
	versionCmd.AddCommand(versionTimelineCmd)
	versionCmd.AddCommand(versionAutosaveCmd)
	versionCmd.AddCommand(versionDraftCmd)
	versionCmd.AddCommand(versionPromoteCmd)
	versionCmd.AddCommand(versionSizeCmd)
	versionCmd.AddCommand(versionStorageCmd)
}

// VersionCmd returns the version command
func VersionCmd() *cobra.Command {
	return versionCmd
}
