package pipeline

import (
	"context"
	"fmt"

	"testassist/internal/agent"
	"testassist/internal/artifact"
	"testassist/internal/generate"
	"testassist/internal/runner"
	"testassist/internal/telemetry"
)

// ArtifactRequester produces a classified artifact from a story.
type ArtifactRequester interface {
	Request(ctx context.Context, req generate.GenerationRequest) (artifact.Classified, error)
}

// ArtifactWriter persists classified artifacts.
type ArtifactWriter interface {
	Collides(dir string) bool
	Write(c artifact.Classified, base, story string) (artifact.Set, error)
}

// Executor runs cucumber-js against a prepared directory.
type Executor interface {
	Execute(ctx context.Context, dir string, opts runner.Options) (runner.Result, error)
}

// Pipeline wires generation, persistence and execution together.
type Pipeline struct {
	Requester    ArtifactRequester
	Writer       ArtifactWriter
	Orchestrator Executor
}

// New builds a Pipeline around a backend and an optional report collector.
func New(a agent.JSONCompleter, c runner.Collector) *Pipeline {
	return &Pipeline{
		Requester:    generate.NewRequester(a),
		Writer:       artifact.NewWriter(),
		Orchestrator: runner.NewOrchestrator(c),
	}
}

// Generate requests an artifact and writes it under req.OutputBaseDir.
// Nothing is written when classification fails.
func (p *Pipeline) Generate(ctx context.Context, req generate.GenerationRequest) (artifact.Classified, artifact.Set, error) {
	c, err := p.Requester.Request(ctx, req)
	if err != nil {
		return artifact.Classified{}, artifact.Set{}, err
	}

	dir := artifact.Dir(req.OutputBaseDir, c.Type, req.StoryText)
	if p.Writer.Collides(dir) {
		telemetry.LogWarn("Overwriting existing artifacts", "dir", dir)
	}

	set, err := p.Writer.Write(c, req.OutputBaseDir, req.StoryText)
	if err != nil {
		return c, artifact.Set{}, err
	}
	telemetry.LogInfo("Artifacts written", "dir", set.Directory, "test_type", c.Type.Display(), "files", set.Files.Len())
	return c, set, nil
}

// RunDir executes an existing artifact directory.
func (p *Pipeline) RunDir(ctx context.Context, dir string, opts runner.Options) (runner.Result, error) {
	return p.Orchestrator.Execute(ctx, dir, opts)
}

// GenerateAndRun generates artifacts and executes the directory they were
// written to.
func (p *Pipeline) GenerateAndRun(ctx context.Context, req generate.GenerationRequest, opts runner.Options) (artifact.Set, runner.Result, error) {
	_, set, err := p.Generate(ctx, req)
	if err != nil {
		return artifact.Set{}, runner.Result{}, fmt.Errorf("generate: %w", err)
	}

	res, err := p.RunDir(ctx, set.Directory, opts)
	if err != nil {
		return set, runner.Result{}, fmt.Errorf("run %s: %w", set.Directory, err)
	}
	return set, res, nil
}
