package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testassist/internal/artifact"
)

func readAll(t *testing.T, dir string, b Bundle) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}
	for p := b.Files.Oldest(); p != nil; p = p.Next() {
		data, err := os.ReadFile(filepath.Join(dir, p.Value))
		require.NoError(t, err)
		out[p.Value] = data
	}
	return out
}

func TestScaffold_WritesCanonicalFiles(t *testing.T) {
	dir := t.TempDir()

	b, err := Scaffold(dir, Options{Browser: "firefox", Headless: false, StepTimeoutMs: 45000})
	require.NoError(t, err)
	assert.Equal(t, dir, b.Directory)

	var logical []string
	for p := b.Files.Oldest(); p != nil; p = p.Next() {
		logical = append(logical, p.Key)
	}
	assert.Equal(t, []string{"reports", "runner-config", "world", "compiler-config"}, logical)

	files := readAll(t, dir, b)
	assert.Empty(t, files[Placeholder])

	cfg := string(files[RunnerConfig])
	assert.Contains(t, cfg, "paths: ['generated.feature']")
	assert.Contains(t, cfg, "require: ['steps.generated.ts', 'support/**/*.ts']")
	assert.Contains(t, cfg, "'json:reports/cucumber-report.json'")
	assert.Contains(t, cfg, "'html:reports/cucumber-report.html'")
	assert.Contains(t, cfg, "'junit:reports/cucumber-report.xml'")
	assert.Contains(t, cfg, "parallel: 1")

	world := string(files[WorldModule])
	assert.Contains(t, world, "process.env.BROWSER || 'firefox'")
	assert.Contains(t, world, "(process.env.HEADLESS || 'false') !== 'false'")
	assert.Contains(t, world, "setDefaultTimeout(45000)")
	assert.Contains(t, world, "finally")
	assert.NotContains(t, world, "[[")

	assert.Contains(t, string(files[CompilerConf]), `"include": ["**/*.ts"]`)
}

func TestScaffold_Idempotent(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Browser: "chromium", Headless: true}

	first, err := Scaffold(dir, opts)
	require.NoError(t, err)
	before := readAll(t, dir, first)

	// local edits are overwritten, not merged
	require.NoError(t, os.WriteFile(filepath.Join(dir, RunnerConfig), []byte("edited"), 0644))

	second, err := Scaffold(dir, opts)
	require.NoError(t, err)
	assert.Equal(t, before, readAll(t, dir, second))
}

func TestRender_Defaults(t *testing.T) {
	a, err := Render(Options{})
	require.NoError(t, err)
	b, err := Render(Options{Browser: "netscape", StepTimeoutMs: -1})
	require.NoError(t, err)

	world, ok := a.Get(WorldModule)
	require.True(t, ok)
	assert.Contains(t, string(world), "process.env.BROWSER || 'chromium'")
	assert.Contains(t, string(world), "setDefaultTimeout(30000)")

	other, _ := b.Get(WorldModule)
	assert.Equal(t, world, other)
}

func TestScaffold_Unwritable(t *testing.T) {
	dir := t.TempDir()
	// a file where the support directory should go
	require.NoError(t, os.WriteFile(filepath.Join(dir, "support"), []byte("x"), 0644))

	_, err := Scaffold(dir, Options{})
	var fsErr *artifact.FileSystemError
	require.True(t, errors.As(err, &fsErr))
	assert.Equal(t, "mkdir", fsErr.Op)
}
