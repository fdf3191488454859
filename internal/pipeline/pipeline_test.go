package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testassist/internal/agent"
	"testassist/internal/artifact"
	"testassist/internal/generate"
	"testassist/internal/runner"
)

type fakeExecutor struct {
	dirs   []string
	result runner.Result
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, dir string, opts runner.Options) (runner.Result, error) {
	f.dirs = append(f.dirs, dir)
	return f.result, f.err
}

func newPipeline(t *testing.T, response any) (*Pipeline, *agent.MockAgent, *fakeExecutor) {
	t.Helper()
	mock := agent.NewMockAgent()
	require.NoError(t, mock.SetJSON(response))
	exec := &fakeExecutor{result: runner.Result{Success: true, TestsPassed: 2}}
	p := New(mock, nil)
	p.Orchestrator = exec
	return p, mock, exec
}

const story = "Login to the app\nAs a user I want to sign in."

func TestGenerate_UI(t *testing.T) {
	p, mock, _ := newPipeline(t, map[string]string{
		"testType":    "ui",
		"featureText": "Feature: Login",
		"stepsText":   "import { Given } from '@cucumber/cucumber';",
		"pagesText":   "export class LoginPage {}",
	})
	base := t.TempDir()

	c, set, err := p.Generate(context.Background(), generate.GenerationRequest{StoryText: story, OutputBaseDir: base})
	require.NoError(t, err)

	assert.Equal(t, artifact.UI, c.Type)
	assert.Equal(t, filepath.Join(base, "ui", "login-to-the-app"), set.Directory)
	assert.Equal(t, 3, set.Files.Len())
	pages, err := os.ReadFile(filepath.Join(set.Directory, artifact.PagesFile))
	require.NoError(t, err)
	assert.Equal(t, "export class LoginPage {}", string(pages))
	assert.Len(t, mock.Completions(), 1)
}

func TestGenerate_InvalidResponseWritesNothing(t *testing.T) {
	p, _, _ := newPipeline(t, map[string]string{
		"testType":    "ui",
		"featureText": "Feature: Login",
		"stepsText":   "steps",
	})
	base := t.TempDir()

	_, _, err := p.Generate(context.Background(), generate.GenerationRequest{StoryText: story, OutputBaseDir: base})
	var ve *artifact.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"pagesText"}, ve.Missing)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateAndRun_UsesClassifiedDirectory(t *testing.T) {
	p, _, exec := newPipeline(t, map[string]string{
		"testType":    "api",
		"featureText": "Feature: Weather",
		"stepsText":   "steps",
	})
	base := t.TempDir()

	set, res, err := p.GenerateAndRun(context.Background(),
		generate.GenerationRequest{StoryText: story, OutputBaseDir: base},
		runner.Options{Browser: "firefox", Headless: true})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(base, "api", "login-to-the-app")}, exec.dirs)
	assert.Equal(t, set.Directory, exec.dirs[0])
	assert.True(t, res.Success)
	assert.Equal(t, uint(2), res.TestsPassed)
}

func TestGenerateAndRun_BackendFailureSkipsRun(t *testing.T) {
	mock := agent.NewMockAgent()
	mock.SetError(errors.New("quota exceeded"))
	exec := &fakeExecutor{}
	p := New(mock, nil)
	p.Orchestrator = exec

	_, _, err := p.GenerateAndRun(context.Background(),
		generate.GenerationRequest{StoryText: story, OutputBaseDir: t.TempDir()}, runner.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, exec.dirs)
}

func TestRunDir_PropagatesPreconditionErrors(t *testing.T) {
	p := New(agent.NewMockAgent(), nil)
	_, err := p.RunDir(context.Background(), filepath.Join(t.TempDir(), "missing"), runner.Options{})

	var nf *runner.DirectoryNotFoundError
	assert.True(t, errors.As(err, &nf))
}
