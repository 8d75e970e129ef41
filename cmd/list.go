package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trellis-notes/trellis/internal/graph"
)

var listCmd = &cobra.Command{
	Use:   "list [noteId]",
	Short: "List notes as a tree",
	Long: `List notes as an indented tree. With no argument the whole tree is
printed from the root; with a noteId only that subtree is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

var listFlat bool

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listFlat, "flat", false, "Print a flat title-sorted list instead of a tree")
}

func runList(cmd *cobra.Command, args []string) error {
	if listFlat {
		for _, note := range app.Notes.List() {
			if note.NoteID == graph.RootNoteID {
				continue
			}
			fmt.Printf("%s  %s\n", note.NoteID, note.Title)
		}
		return nil
	}

	startID := graph.RootNoteID
	if len(args) == 1 {
		startID = args[0]
		if _, err := app.Notes.GetByID(startID); err != nil {
			return fmt.Errorf("failed to get note: %w", err)
		}
	}

	printSubtree(startID, 0, make(map[string]bool))
	return nil
}

// printSubtree walks first-parent order. The visited set guards against
// clones appearing twice under the same lineage.
func printSubtree(noteID string, depth int, visited map[string]bool) {
	note := app.Store.GetNote(noteID)
	if note == nil {
		return
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Printf("%s%s  %s\n", indent, note.NoteID, note.Title)

	if visited[noteID] {
		return
	}
	visited[noteID] = true
	for _, childID := range app.Store.ChildNoteIDs(noteID) {
		printSubtree(childID, depth+1, visited)
	}
}
