package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"testassist/internal/config"
	"testassist/internal/generate"
)

func NewGenerateCmd() *cobra.Command {
	var storyPath, outDir string

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gherkin"},
		Short:   "Generate a feature, step definitions and page objects from a story",
		Long: `Sends the user story to the configured generative backend, classifies the
response as an API or UI test and writes it under <out>/<type>/<slug>/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.Current()
			req, err := storyRequest(storyPath, outDir, s)
			if err != nil {
				return err
			}

			p, err := newPipeline(cmd, s)
			if err != nil {
				return fmt.Errorf("failed to create agent: %w", err)
			}

			_, _, err = p.Generate(cmd.Context(), req)
			return err
		},
	}

	cmd.Flags().StringVar(&storyPath, "story", "", "Path to the user story / acceptance criteria file")
	cmd.Flags().StringVar(&outDir, "out", "", "Output base directory (default from config, \"out\")")
	cmd.MarkFlagRequired("story")
	return cmd
}

// storyRequest reads the story file into a generation request.
func storyRequest(storyPath, outDir string, s config.Settings) (generate.GenerationRequest, error) {
	story, err := os.ReadFile(storyPath)
	if err != nil {
		return generate.GenerationRequest{}, fmt.Errorf("failed to read story: %w", err)
	}
	if outDir == "" {
		outDir = s.OutputDir
	}
	return generate.GenerationRequest{
		StoryText:     string(story),
		OutputBaseDir: outDir,
		Backend:       generate.BackendConfig{Provider: s.Provider, Model: s.Model},
	}, nil
}
