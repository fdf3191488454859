package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"testassist/internal/config"
	"testassist/internal/datagen"
)

func NewSynthesizeDataCmd() *cobra.Command {
	var schemaPath, outFile string
	var n int

	cmd := &cobra.Command{
		Use:     "synthesize-data",
		Aliases: []string{"data"},
		Short:   "Generate test data records that satisfy a JSON Schema",
		Long: `Asks the generative backend for records matching the schema, validates each
one and writes only the valid records to the output file as a JSON array.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("--n must be positive, got %d", n)
			}

			client, err := agentClientFactory(config.Current())
			if err != nil {
				return fmt.Errorf("failed to create agent: %w", err)
			}

			var stats datagen.Stats
			err = spin(cmd, fmt.Sprintf("Synthesizing %d records...", n), func(ctx context.Context) error {
				var err error
				stats, err = datagen.New(client).Synthesize(ctx, datagen.SynthesisRequest{
					SchemaPath: schemaPath,
					N:          n,
					OutFile:    outFile,
				})
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Data synthesis: requested %d, generated %d, valid %d -> %s\n",
				stats.Requested, stats.Generated, stats.Valid, outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Path to a JSON Schema file")
	cmd.Flags().StringVar(&outFile, "out", "", "Output JSON file")
	cmd.Flags().IntVar(&n, "n", datagen.DefaultCount, "Number of records to request")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("out")
	return cmd
}
