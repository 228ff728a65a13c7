package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docrag/config"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Retrieve matching passages without generation",
	Long: `Search the index and print the top matching passages with their
similarity scores. No language model is involved.

Examples:
  docrag query -q "transfer limits"
  docrag query -q "account fees" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

type queryResult struct {
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	dbPath := config.IndexDBPath(GetRootDir(), cfg)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'docrag index' first")
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	idx, err := openIndex(GetRootDir(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	r := newRetriever(cfg, idx, emb)
	chunks, err := r.Retrieve(cmd.Context(), queryText, topK, nil)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]queryResult, len(chunks))
	for i, c := range chunks {
		results[i] = queryResult{
			Source: c.Chunk.Source,
			Page:   c.Chunk.Page,
			Score:  c.Score,
			Text:   c.Chunk.Text,
		}
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, res := range results {
		fmt.Printf("%d. %s (page %d, score %.4f)\n%s\n\n", i+1, res.Source, res.Page, res.Score, res.Text)
	}
	return nil
}
