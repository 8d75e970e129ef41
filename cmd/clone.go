package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <noteId> <parentNoteId>",
	Short: "Place a note under an additional parent",
	Long: `Clone a note: add a second placement under another parent. The note's
content and attributes are shared between placements, not copied.`,
	Args: cobra.ExactArgs(2),
	RunE: runClone,
}

func init() {
	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
	noteID, parentNoteID := args[0], args[1]

	branch, err := app.Tree.Clone(noteID, parentNoteID)
	if err != nil {
		return fmt.Errorf("failed to clone note: %w", err)
	}

	fmt.Printf("Note %s cloned under %s (branchId: %s).\n", noteID, parentNoteID, branch.BranchID)
	return nil
}
