package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trellis-notes/trellis/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search notes with the query language",
	Long: `Search notes using the structured query language.

Examples:
  trellis search "kubernetes deployment"
  trellis search '#book'
  trellis search '#author = Tolkien'
  trellis search '~author.title *=* Tolkien'
  trellis search '#book AND note.dateCreated >= TODAY-30'
  trellis search 'towers OR rings'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var (
	searchLimit           int
	searchFast            bool
	searchIncludeArchived bool
	searchFuzzyAttrs      bool
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchFast, "fast", false, "Skip note content during matching")
	searchCmd.Flags().BoolVarP(&searchIncludeArchived, "archived", "a", false, "Include archived notes")
	searchCmd.Flags().BoolVar(&searchFuzzyAttrs, "fuzzy-attrs", false, "Allow approximate attribute value equality")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	ctx := &search.Context{
		FastSearch:           searchFast,
		IncludeArchivedNotes: searchIncludeArchived,
		FuzzyAttributeSearch: searchFuzzyAttrs,
	}

	results, err := app.Search.Search(query, ctx)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No notes found.")
		return nil
	}
	if searchLimit > 0 && len(results) > searchLimit {
		results = results[:searchLimit]
	}

	fmt.Printf("Found %d notes:\n\n", len(results))
	for i, res := range results {
		note := app.Store.GetNote(res.NoteID)
		if note == nil {
			continue
		}
		fmt.Printf("%d. [%s] %s (score: %.1f)\n", i+1, res.NoteID, note.Title, res.Score)
		if path := app.Store.PathTitle(res.NoteID); path != "" {
			fmt.Printf("   %s\n", path)
		}
		for _, snippet := range res.Snippets {
			fmt.Printf("   %s\n", snippet)
		}
	}

	return nil
}
