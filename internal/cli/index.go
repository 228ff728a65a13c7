package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index documents for retrieval",
	Long: `Index documents in the specified directory for question answering.
The index is stored in .docrag/index.db within the root directory.

Examples:
  docrag index .          # Index current directory
  docrag index ./docs     # Index a documentation directory
  docrag index manual.pdf # Index a single file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	cfg := GetConfig()

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	idx, err := openIndex(GetRootDir(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	ing, err := newIngestor(cfg, idx, emb)
	if err != nil {
		return err
	}

	fmt.Printf("Scanning %s...\n", path)
	start := time.Now()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Indexing"),
			)
		}
		bar.Set(done)
	}

	count, err := ing.Ingest(cmd.Context(), path, progress)
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("Indexed %d chunks into collection %q in %s\n",
		count, cfg.Index.Collection, time.Since(start).Round(time.Millisecond))
	return nil
}
