package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <noteId>",
	Short: "Show a note with its attributes and placement",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	noteID := args[0]

	note, err := app.Notes.GetByID(noteID)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	fmt.Printf("ID: %s\n", note.NoteID)
	fmt.Printf("Title: %s\n", note.Title)
	fmt.Printf("Type: %s\n", note.Type)
	if path := app.Store.PathTitle(noteID); path != "" {
		fmt.Printf("Path: %s\n", path)
	}
	fmt.Printf("Created: %s\n", note.DateCreated)
	fmt.Printf("Modified: %s\n", note.DateModified)

	attrs := app.Store.Attributes(noteID)
	if len(attrs) > 0 {
		fmt.Println("Attributes:")
		for _, attr := range attrs {
			prefix := "#"
			if attr.Type == "relation" {
				prefix = "~"
			}
			if attr.Value != "" {
				fmt.Printf("  %s%s = %s\n", prefix, attr.Name, attr.Value)
			} else {
				fmt.Printf("  %s%s\n", prefix, attr.Name)
			}
		}
	}

	if note.Content != "" {
		fmt.Printf("\n%s\n", note.Content)
	}

	return nil
}
