package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new note",
	Long: `Add a new note with a title and content.

Content can be provided in several ways:
1. Via --content flag: trellis add -t "Title" -c "Content"
2. Via stdin: echo "Content" | trellis add -t "Title"

The note is placed under the root unless --parent names another note.`,
	RunE: runAdd,
}

var (
	addTitle   string
	addContent string
	addParent  string
	addType    string
)

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Note title (required)")
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "Note content")
	addCmd.Flags().StringVarP(&addParent, "parent", "p", "", "Parent noteId (default: root)")
	addCmd.Flags().StringVar(&addType, "type", "text", "Note type")
	_ = addCmd.MarkFlagRequired("title")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if addContent == "" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			scanner := bufio.NewScanner(os.Stdin)
			var lines []string
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			addContent = strings.Join(lines, "\n")
		}
	}

	note, err := app.Notes.Create(addParent, addTitle, addType, "", addContent)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	fmt.Printf("Note created successfully!\n")
	fmt.Printf("ID: %s\n", note.NoteID)
	fmt.Printf("Title: %s\n", note.Title)
	fmt.Printf("Created: %s\n", note.DateCreated)

	return nil
}
