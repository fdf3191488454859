package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"testassist/internal/config"
	"testassist/internal/prompts"
	"testassist/internal/telemetry"
	"testassist/internal/ui"
)

// errTestsFailed maps an unsuccessful execution to exit code 1 without an
// extra error line; the result box already says what happened.
var errTestsFailed = errors.New("tests failed")

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "testassist",
		Short: "Generate and run BDD tests from user stories",
		Long: `testassist turns a user story with acceptance criteria into a Gherkin
feature, TypeScript step definitions and, for UI stories, page objects. It can
then prepare the directory for cucumber-js, run it and collect the reports.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	cmd.PersistentFlags().String("provider", "", "Generative backend (openai, openrouter, ollama, mock)")
	cmd.PersistentFlags().String("model", "", "Model to use (overrides config and TESTASSIST_MODEL)")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :2112)")
	bindFlags(cmd.PersistentFlags(), map[string]string{
		"verbose":      "verbose",
		"provider":     "provider",
		"model":        "model",
		"metrics-addr": "metrics_addr",
	})

	cmd.AddCommand(
		NewGenerateCmd(),
		NewSynthesizeDataCmd(),
		NewTriageCmd(),
		NewTestCmd(),
		NewRunCmd(),
		NewListCmd(),
		NewSetupCmd(),
	)
	return cmd
}

// bindFlags lets flags override the config keys they are mapped to.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if f := fs.Lookup(flag); f != nil {
			viper.BindPFlag(key, f)
		}
	}
}

// Execute runs root and returns the process exit status: 0 on success, 1 on
// any failure.
func Execute(ctx context.Context, root *cobra.Command) int {
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// initConfig loads configuration and the ambient services every command uses.
func initConfig(cmd *cobra.Command, cfgFile string) error {
	if err := config.Load(cfgFile); err != nil {
		return err
	}
	if err := config.ValidateConfig(); err != nil {
		return err
	}

	s := config.Current()
	telemetry.InitLogger(s.Verbose, s.LogFile)

	noColor, _ := cmd.Flags().GetBool("no-color")
	ui.ConfigureColor(noColor)

	if s.PromptsDir != "" {
		prompts.OverrideDir = s.PromptsDir
	}

	if s.MetricsAddr != "" {
		go func() {
			if err := telemetry.StartMetricsServer(s.MetricsAddr); err != nil {
				telemetry.LogWarn("Metrics server stopped", "addr", s.MetricsAddr, "error", err)
			}
		}()
	}
	return nil
}
