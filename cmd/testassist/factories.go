package main

import (
	"context"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"testassist/internal/agent"
	"testassist/internal/artifact"
	"testassist/internal/config"
	"testassist/internal/generate"
	"testassist/internal/notify"
	"testassist/internal/pipeline"
	"testassist/internal/report"
	"testassist/internal/runner"
	"testassist/internal/ui"
)

// Mockable dependencies
var (
	askOneFunc = survey.AskOne
	spinFunc   = ui.RunWithProgress

	agentClientFactory = func(s config.Settings) (agent.Client, error) {
		return agent.NewAgent(agent.Config{
			Provider:   s.Provider,
			APIKey:     s.APIKey,
			Model:      s.Model,
			BaseURL:    s.BaseURL,
			Timeout:    s.AgentTimeout,
			MaxRetries: s.AgentMaxRetries,
		})
	}

	orchestratorFactory = func(s config.Settings) pipeline.Executor {
		return runner.NewOrchestrator(report.NewCollector(notify.NewFromSettings(s)))
	}
)

// newPipeline builds the full generate-and-run pipeline for cmd. The backend
// call runs behind a spinner and every written set is printed to cmd's output.
func newPipeline(cmd *cobra.Command, s config.Settings) (*pipeline.Pipeline, error) {
	client, err := agentClientFactory(s)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(client, nil)
	p.Requester = &spinningRequester{next: p.Requester, label: "Generating tests with " + s.Provider + "..."}
	p.Writer = &announcingWriter{ArtifactWriter: p.Writer, out: cmd.OutOrStdout()}
	p.Orchestrator = orchestratorFactory(s)
	return p, nil
}

// newRunPipeline is a pipeline that only executes existing directories.
func newRunPipeline(s config.Settings) *pipeline.Pipeline {
	return &pipeline.Pipeline{Orchestrator: orchestratorFactory(s)}
}

// spin runs task behind a progress spinner bound to the command's context.
func spin(cmd *cobra.Command, label string, task func(ctx context.Context) error) error {
	return spinFunc(cmd.Context(), label, func(ctx context.Context, _ func(string)) error {
		return task(ctx)
	})
}

// spinningRequester streams the backend response behind a spinner whose
// status shows how much has arrived.
type spinningRequester struct {
	next  pipeline.ArtifactRequester
	label string
}

func (r *spinningRequester) Request(ctx context.Context, req generate.GenerationRequest) (artifact.Classified, error) {
	var c artifact.Classified
	err := spinFunc(ctx, r.label, func(ctx context.Context, status func(string)) error {
		var received uint64
		req.OnChunk = func(chunk string) {
			received += uint64(len(chunk))
			status(humanize.Bytes(received) + " received")
		}
		var err error
		c, err = r.next.Request(ctx, req)
		return err
	})
	return c, err
}

// announcingWriter prints each set as soon as it is on disk.
type announcingWriter struct {
	pipeline.ArtifactWriter
	out io.Writer
}

func (w *announcingWriter) Write(c artifact.Classified, base, story string) (artifact.Set, error) {
	set, err := w.ArtifactWriter.Write(c, base, story)
	if err != nil {
		return set, err
	}
	fmt.Fprintln(w.out, ui.RenderSet(c, set))
	return set, nil
}
