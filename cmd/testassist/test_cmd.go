package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"testassist/internal/artifact"
	"testassist/internal/config"
	"testassist/internal/pipeline"
	"testassist/internal/runner"
	"testassist/internal/scaffold"
	"testassist/internal/ui"
)

const watchDebounce = 500 * time.Millisecond

func NewTestCmd() *cobra.Command {
	var (
		dir, browser string
		headless     bool
		setup, watch bool
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run cucumber-js against a generated artifact directory",
		Long: `Prepares the directory (runner config, world module, tsconfig, reports/),
runs cucumber-js in it and collects the reports. Exits 0 only when the runner
exits 0.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.Current()
			opts, err := runOptions(cmd, s, browser, headless)
			if err != nil {
				return err
			}
			// Scaffolding creates directories; a mistyped --dir must fail first.
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return &runner.DirectoryNotFoundError{Dir: dir}
			}

			if setup {
				bundle, err := scaffold.Scaffold(dir, scaffold.Options{
					Browser:       opts.Browser,
					Headless:      opts.Headless,
					StepTimeoutMs: opts.StepTimeoutMs,
				})
				if err != nil {
					return err
				}
				for p := bundle.Files.Oldest(); p != nil; p = p.Next() {
					fmt.Fprintf(cmd.OutOrStdout(), "Prepared %s\n", filepath.Join(bundle.Directory, p.Value))
				}
			}

			p := newRunPipeline(s)
			if watch {
				return watchDir(cmd.Context(), cmd, dir, func(ctx context.Context) error {
					return executeDir(ctx, cmd, p, dir, opts)
				})
			}
			return executeDir(cmd.Context(), cmd, p, dir, opts)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Artifact directory holding the feature and steps files")
	cmd.Flags().StringVar(&browser, "browser", "", "Browser engine: chromium, firefox or webkit (default from config)")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
	cmd.Flags().BoolVar(&setup, "setup", false, "Prepare the directory and list the files before running")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run when the feature, steps or pages change")
	cmd.MarkFlagRequired("dir")
	return cmd
}

// runOptions merges command flags over the configured defaults.
func runOptions(cmd *cobra.Command, s config.Settings, browser string, headless bool) (runner.Options, error) {
	if browser == "" {
		browser = s.Browser
	} else if err := config.ValidateBrowser(browser); err != nil {
		return runner.Options{}, err
	}
	if !cmd.Flags().Changed("headless") {
		headless = s.Headless
	}
	return runner.Options{
		Browser:       browser,
		Headless:      headless,
		StepTimeoutMs: s.StepTimeoutMs,
		Command:       s.RunnerCommand,
		ProjectName:   s.ProjectName,
		Stdout:        cmd.OutOrStdout(),
		Stderr:        cmd.ErrOrStderr(),
	}, nil
}

// executeDir runs one execution of dir and prints its result.
func executeDir(ctx context.Context, cmd *cobra.Command, p *pipeline.Pipeline, dir string, opts runner.Options) error {
	res, err := p.RunDir(ctx, dir, opts)
	if err != nil {
		return err
	}
	return printResult(cmd, res)
}

// printResult renders res. An unsuccessful run returns errTestsFailed.
func printResult(cmd *cobra.Command, res runner.Result) error {
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderResult(res))
	if !res.Success {
		return errTestsFailed
	}
	return nil
}

// watched reports whether a change to name should trigger a re-run. Files the
// scaffolder and the runner write are ignored.
func watched(name string) bool {
	switch filepath.Base(name) {
	case artifact.FeatureFile, artifact.StepsFile, artifact.PagesFile:
		return true
	}
	return false
}

// watchDir runs once, then again after every debounced change to the
// artifact files, until ctx is cancelled.
func watchDir(ctx context.Context, cmd *cobra.Command, dir string, run func(ctx context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// Failures keep the loop alive.
	_ = run(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes...")

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod || !watched(event.Name) {
				continue
			}
			debounce = time.After(watchDebounce)
		case <-debounce:
			debounce = nil
			fmt.Fprintln(cmd.OutOrStdout(), "\nChange detected, re-running...")
			_ = run(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes...")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watcher error: %v\n", err)
		}
	}
}
