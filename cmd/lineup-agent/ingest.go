package main

import (
	"github.com/spf13/cobra"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run ingestion once and print a summary",
		Long: `Parses, splits, embeds and stores the source document, then prints the number of
indexed chunks. The index lives in memory, so this is a dry run for checking
credentials, the embedding dimension and the parser on a given file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, flags.env, cfg, buildOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.prepare(ctx, source); err != nil {
				return err
			}

			n, err := a.store.Count(ctx, cfg.VectorStore.Collection)
			if err != nil {
				return err
			}
			cmd.Printf("Indexed %d chunks into %q\n", n, cfg.VectorStore.Collection)
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "document to ingest (overrides ingest.source)")
	return cmd
}
