package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Serve the ingest and query pipelines over HTTP.

Endpoints:
  POST /api/v1/ingest  {"path": "..."}
  POST /api/v1/query   {"question": "...", "top_k": 5}`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
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
	asker, err := newAsker(cfg, idx, emb)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return server.New(ing, asker, addr, cfg.Server.Mode).Run()
}
