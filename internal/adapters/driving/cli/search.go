package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var (
	searchPrefs    bool
	searchPrevTurn bool
	searchTurn     uint64
	searchRefs     []int64
	searchTopK     int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [phrase]...",
	Short: "Search the personal knowledge store",
	Long: `Ranks documents from the knowledge store against up to five short
search phrases, combining BM25 keyword relevance with embedding similarity
when an embedding backend is configured.`,
	Args: cobra.RangeArgs(1, 5),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchPrefs, "prefs", false, "always include the user-preferences note")
	searchCmd.Flags().BoolVar(&searchPrevTurn, "prev-turn", false, "always include the previous turn")
	searchCmd.Flags().Uint64Var(&searchTurn, "turn", 0, "current turn number (required)")
	searchCmd.Flags().Int64SliceVar(&searchRefs, "ref", nil, "explicitly referenced turn (repeatable)")
	searchCmd.Flags().IntVarP(&searchTopK, "top", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	_ = searchCmd.MarkFlagRequired("turn")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchEngine == nil {
		return errors.New("search engine not configured")
	}

	refs := make([]uint64, 0, len(searchRefs))
	for _, ref := range searchRefs {
		if ref < 0 {
			return fmt.Errorf("invalid turn reference %d", ref)
		}
		refs = append(refs, uint64(ref))
	}

	req := domain.SearchRequest{
		QueryTerms:          args,
		IncludePreferences:  searchPrefs,
		IncludePreviousTurn: searchPrevTurn,
		CurrentTurn:         searchTurn,
		ReferenceTurns:      refs,
		TopK:                searchTopK,
	}

	results, err := searchEngine.Search(context.Background(), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results.Items) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("%d results (%d documents scanned)\n\n", results.Stats.FinalCount, results.Stats.DocumentsScanned)
	for i, item := range results.Items {
		origin := ""
		if item.Origin == domain.OriginAlwaysInclude {
			origin = " [reserved]"
		}
		cmd.Printf("%2d. %-60s %s  score=%.4f%s\n", i+1, item.DocumentPath, item.SourceType, item.FusedScore, origin)
		if item.Snippet != "" {
			cmd.Printf("    %s\n", item.Snippet)
		}
	}
	return nil
}
