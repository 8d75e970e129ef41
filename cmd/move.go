package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move <noteId> <newParentNoteId>",
	Short: "Move a note under a new parent",
	Long: `Move a note's first placement under a new parent note. The move is
rejected before any change if it would create a cycle in the tree.`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
}

func runMove(cmd *cobra.Command, args []string) error {
	noteID, parentNoteID := args[0], args[1]

	branches := app.Store.ParentBranches(noteID)
	if len(branches) == 0 {
		return fmt.Errorf("note %s has no placement to move", noteID)
	}

	if err := app.Tree.Move(branches[0].BranchID, parentNoteID); err != nil {
		return fmt.Errorf("failed to move note: %w", err)
	}

	fmt.Printf("Note %s moved under %s.\n", noteID, parentNoteID)
	return nil
}
