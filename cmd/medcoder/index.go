package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/medcoderd/internal/corpus"
	"github.com/fyrsmithlabs/medcoderd/internal/embeddings"
	"github.com/fyrsmithlabs/medcoderd/internal/vectorstore"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Load the code tables into the vector store",
		Long: `index reads the configured CPT and ICD code tables and writes them
into the vector store. Rerunning it after a table update replaces the
previous records.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			embedService, err := embeddings.NewService(cfg.Embeddings)
			if err != nil {
				return err
			}
			store, err := vectorstore.New(cfg.VectorStore, embedService.Embedder(), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			indexer := corpus.NewIndexer(cfg.Corpus, store, logger)
			indexed, err := indexer.Reindex(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d code records\n", indexed)
			return nil
		},
	}
}
