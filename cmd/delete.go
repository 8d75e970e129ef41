package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <noteId>",
	Short: "Delete a note and its subtree",
	Long: `Delete a note together with every descendant reachable only through it.
Descendants cloned elsewhere keep their other placements.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var deleteForce bool

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip the confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	noteID := args[0]

	note, err := app.Notes.GetByID(noteID)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	if !deleteForce {
		descendants := len(app.Store.SubtreeNoteIDs(noteID)) - 1
		fmt.Printf("Delete %q", note.Title)
		if descendants > 0 {
			fmt.Printf(" and up to %d descendant notes", descendants)
		}
		fmt.Print("? (y/N): ")

		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Deletion cancelled.")
			return nil
		}
	}

	if err := app.Notes.Delete(noteID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	fmt.Printf("Note %s deleted.\n", noteID)
	return nil
}
