package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// snippetWords bounds the chunk text shown per result.
const snippetWords = 40

var (
	searchLimit     int
	searchPatientID string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed records",
	Long: `Embeds the query and returns the most similar record chunks by
cosine similarity. Use --patient-id to search one patient's records only.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().StringVar(&searchPatientID, "patient-id", "", "only return this patient's records")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireServices(ctx); err != nil {
		return err
	}

	results, err := searchService.Search(ctx, domain.SearchQuery{
		Text:      args[0],
		TopK:      searchLimit,
		PatientID: searchPatientID,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	if results == nil {
		results = []domain.SearchResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] Title (Score)
		title := results[i].Title()
		if title == "" {
			title = results[i].DocumentID()
		}

		cmd.Printf("  [%d] %s %s\n", i+1, titleStyle.Render(title), scoreStyle.Render(fmt.Sprintf("(%.2f)", results[i].Score)))
		cmd.Println(mutedStyle.Render("      " + resultDetails(results[i])))
		if text := snippet(results[i].Text(), snippetWords); text != "" {
			cmd.Println(snippetStyle.Render(text))
		}
		cmd.Println()
	}

	return nil
}

// resultDetails lists the identifying payload fields of a hit.
func resultDetails(r domain.SearchResult) string {
	parts := []string{"patient " + fmt.Sprint(r.Payload[domain.PayloadPatientID])}
	if t, ok := r.Payload[domain.PayloadRecordType].(string); ok && t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, fmt.Sprintf("chunk %d", r.ChunkIndex()), r.PointID)
	return strings.Join(parts, " · ")
}

func snippet(text string, words int) string {
	fields := strings.Fields(text)
	if len(fields) <= words {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:words], " ") + " …"
}
