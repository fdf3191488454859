package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"testassist/internal/artifact"
	"testassist/internal/config"
	"testassist/internal/scaffold"
	"testassist/internal/ui"
)

func NewListCmd() *cobra.Command {
	var outDir, testType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generated suites and whether their artifacts are complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = config.Current().OutputDir
			}

			types := []artifact.TestType{artifact.API, artifact.UI}
			if testType != "" {
				t, err := artifact.ParseTestType(testType)
				if err != nil {
					return err
				}
				types = []artifact.TestType{t}
			}

			suites, err := discoverSuites(outDir, types)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuites(suites))
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Output base directory (default from config, \"out\")")
	cmd.Flags().StringVar(&testType, "type", "", "Only list api or ui suites")
	return cmd
}

// discoverSuites lists <out>/<type>/<slug> directories in name order. A suite
// is complete when it holds every file its type requires.
func discoverSuites(outDir string, types []artifact.TestType) ([]ui.Suite, error) {
	var suites []ui.Suite
	for _, t := range types {
		entries, err := os.ReadDir(filepath.Join(outDir, string(t)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(outDir, string(t), e.Name())
			set, _, err := artifact.Load(dir)
			if err != nil {
				return nil, err
			}

			suite := ui.Suite{Name: e.Name(), Type: t, Dir: dir}
			for p := set.Files.Oldest(); p != nil; p = p.Next() {
				suite.Files = append(suite.Files, p.Key)
			}
			_, hasFeature := set.Files.Get(artifact.LogicalFeature)
			_, hasSteps := set.Files.Get(artifact.LogicalSteps)
			_, hasPages := set.Files.Get(artifact.LogicalPages)
			suite.Complete = hasFeature && hasSteps && (t == artifact.API || hasPages)

			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(scaffold.ReportJSON))); err == nil {
				suite.HasRun = true
			}
			suites = append(suites, suite)
		}
	}
	return suites, nil
}
