package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"testassist/internal/config"
)

func NewRunCmd() *cobra.Command {
	var storyPath, outDir, browser string
	var headless bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate tests from a story and run them",
		Long: `Generates the artifacts for a story, then runs cucumber-js in the directory
they were written to. Exits 0 only when the runner exits 0.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.Current()
			req, err := storyRequest(storyPath, outDir, s)
			if err != nil {
				return err
			}

			opts, err := runOptions(cmd, s, browser, headless)
			if err != nil {
				return err
			}

			p, err := newPipeline(cmd, s)
			if err != nil {
				return fmt.Errorf("failed to create agent: %w", err)
			}

			_, res, err := p.GenerateAndRun(cmd.Context(), req, opts)
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}

	cmd.Flags().StringVar(&storyPath, "story", "", "Path to the user story / acceptance criteria file")
	cmd.Flags().StringVar(&outDir, "out", "", "Output base directory (default from config, \"out\")")
	cmd.Flags().StringVar(&browser, "browser", "", "Browser engine: chromium, firefox or webkit (default from config)")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
	cmd.MarkFlagRequired("story")
	return cmd
}
