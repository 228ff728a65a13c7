package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docrag/config"
)

var (
	askText string
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the indexed documents",
	Long: `Run the full pipeline: retrieve relevant passages, assemble a cited
context, and generate an answer with the configured language model.

Examples:
  docrag ask -q "what is the daily transfer limit?"
  docrag ask -q "how do I close an account?" --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "passages to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	asker, err := newAsker(cfg, idx, emb)
	if err != nil {
		return err
	}

	answer, err := asker.Ask(cmd.Context(), askText, askTopK, nil)
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		for i, c := range answer.Citations {
			fmt.Printf("  [%d] %s, page %d\n", i+1, c.Source, c.Page)
		}
	}
	if answer.Unsupported {
		fmt.Println("\nNote: the answer cites no indexed passage and may not be grounded.")
	}
	return nil
}
