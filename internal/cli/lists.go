package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/internal/storage"
)

var listsCmd = &cobra.Command{
	Use:     "lists",
	Aliases: []string{"list"},
	Short:   "Manage saved participant lists",
	Long: `Manage saved participant lists.

Saved lists can be loaded into the interactive wheel or passed to
'wheel assign --list NAME'. Without a subcommand the saved lists are shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListsLs()
	},
}

var listsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Show saved lists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListsLs()
	},
}

var listsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the participants of a saved list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lists == nil {
			return fmt.Errorf("named lists not initialized")
		}
		members, ok := Lists.Get(args[0])
		if !ok {
			return fmt.Errorf("no saved list named %q", args[0])
		}
		for _, m := range members {
			fmt.Println(m)
		}
		return nil
	},
}

var listsSaveCmd = &cobra.Command{
	Use:   "save <name> <participant>...",
	Short: "Save a participant list, replacing any list with that name",
	Long: `Save a participant list, replacing any list with that name.

Participant names are trimmed; blank and repeated names are dropped.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lists == nil {
			return fmt.Errorf("named lists not initialized")
		}

		e := core.NewAssignmentEngine()
		e.LoadParticipants(args[1:])
		participants := e.Participants()

		err := Lists.Save(args[0], participants)
		if errors.Is(err, storage.ErrEmptyListName) || errors.Is(err, storage.ErrEmptyList) {
			return errors.New(core.MsgNeedListNameAndParticipants)
		}
		if err != nil {
			return fmt.Errorf("saving list %q: %w", args[0], err)
		}

		fmt.Printf("Saved list %q with %d participant(s).\n", args[0], len(participants))
		return nil
	},
}

var listsDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved list",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lists == nil {
			return fmt.Errorf("named lists not initialized")
		}
		if _, ok := Lists.Get(args[0]); !ok {
			return fmt.Errorf("no saved list named %q", args[0])
		}
		if err := Lists.Delete(args[0]); err != nil {
			return fmt.Errorf("deleting list %q: %w", args[0], err)
		}
		fmt.Printf("Deleted list %q.\n", args[0])
		return nil
	},
}

func runListsLs() error {
	if Lists == nil {
		return fmt.Errorf("named lists not initialized")
	}

	names := Lists.Names()
	if len(names) == 0 {
		fmt.Println("No saved lists.")
		return nil
	}
	for _, name := range names {
		members, _ := Lists.Get(name)
		fmt.Printf("  %-24s %d participant(s)\n", name, len(members))
	}
	return nil
}

func init() {
	listsShowCmd.ValidArgsFunction = completeListArg
	listsDeleteCmd.ValidArgsFunction = completeListArg
	listsCmd.AddCommand(listsLsCmd)
	listsCmd.AddCommand(listsShowCmd)
	listsCmd.AddCommand(listsSaveCmd)
	listsCmd.AddCommand(listsDeleteCmd)
	rootCmd.AddCommand(listsCmd)
}
