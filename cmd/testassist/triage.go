package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"testassist/internal/config"
	"testassist/internal/triage"
	"testassist/internal/ui"
)

func NewTriageCmd() *cobra.Command {
	var logPath, outFile string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Summarize a failing test log into Markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := agentClientFactory(config.Current())
			if err != nil {
				return fmt.Errorf("failed to create agent: %w", err)
			}

			var stats triage.Stats
			err = spin(cmd, "Triaging "+logPath+"...", func(ctx context.Context) error {
				var err error
				stats, err = triage.New(client).Summarize(ctx, logPath, outFile)
				return err
			})
			if err != nil {
				return err
			}

			if !quiet {
				md, err := os.ReadFile(outFile)
				if err == nil {
					fmt.Fprint(cmd.OutOrStdout(), ui.RenderMarkdown(string(md), ui.DefaultWrap))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Triage summary written to %s (%d bytes)\n", outFile, stats.Bytes)
			return nil
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "Path to the failure log")
	cmd.Flags().StringVar(&outFile, "out", "", "Output Markdown file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not preview the summary")
	cmd.MarkFlagRequired("log")
	cmd.MarkFlagRequired("out")
	return cmd
}
