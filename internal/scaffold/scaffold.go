package scaffold

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"testassist/internal/artifact"
	"testassist/internal/telemetry"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Paths inside an execution directory, relative to it.
const (
	ReportsDir    = "reports"
	Placeholder   = "reports/.gitkeep"
	ReportJSON    = "reports/cucumber-report.json"
	ReportHTML    = "reports/cucumber-report.html"
	ReportJUnit   = "reports/cucumber-report.xml"
	ScreenshotDir = "reports/screenshots"
	RunnerConfig  = "cucumber.js"
	WorldModule   = "support/world.ts"
	CompilerConf  = "tsconfig.json"
)

// Defaults applied to zero-valued Options.
const (
	DefaultBrowser       = "chromium"
	DefaultStepTimeoutMs = 30000
)

// Browsers the world module knows how to launch.
var Browsers = []string{"chromium", "firefox", "webkit"}

// Options parameterise the generated support files.
type Options struct {
	Browser       string
	Headless      bool
	StepTimeoutMs int
}

func (o Options) normalized() Options {
	known := false
	for _, b := range Browsers {
		if o.Browser == b {
			known = true
			break
		}
	}
	if !known {
		if o.Browser != "" {
			telemetry.LogWarn("Unknown browser, falling back", "browser", o.Browser, "fallback", DefaultBrowser)
		}
		o.Browser = DefaultBrowser
	}
	if o.StepTimeoutMs <= 0 {
		o.StepTimeoutMs = DefaultStepTimeoutMs
	}
	return o
}

// Bundle lists the files a scaffold run wrote.
type Bundle struct {
	Directory string
	// Files maps logical name to path relative to Directory, in write order.
	Files *orderedmap.OrderedMap[string, string]
}

// templates is [logical name, relative path, template file]. An empty
// template file means an empty placeholder.
var templates = [][3]string{
	{"reports", Placeholder, ""},
	{"runner-config", RunnerConfig, "templates/cucumber.js.tmpl"},
	{"world", WorldModule, "templates/world.ts.tmpl"},
	{"compiler-config", CompilerConf, "templates/tsconfig.json.tmpl"},
}

type templateData struct {
	Options
	Feature       string
	Steps         string
	ReportJSON    string
	ReportHTML    string
	ReportJUnit   string
	ScreenshotDir string
}

// Render returns the canonical content of every scaffold file without
// touching the filesystem. The result depends only on opts.
func Render(opts Options) (*orderedmap.OrderedMap[string, []byte], error) {
	data := templateData{
		Options:       opts.normalized(),
		Feature:       artifact.FeatureFile,
		Steps:         artifact.StepsFile,
		ReportJSON:    ReportJSON,
		ReportHTML:    ReportHTML,
		ReportJUnit:   ReportJUnit,
		ScreenshotDir: ScreenshotDir,
	}

	out := orderedmap.New[string, []byte]()
	for _, t := range templates {
		if t[2] == "" {
			out.Set(t[1], []byte{})
			continue
		}
		content, err := render(templateFS, t[2], data)
		if err != nil {
			return nil, err
		}
		out.Set(t[1], []byte(content))
	}
	return out, nil
}

func render(fsys fs.FS, name string, data any) (string, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	tpl, err := template.New(filepath.Base(name)).
		Delims("[[", "]]").
		Option("missingkey=error").
		Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}

	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return b.String(), nil
}

// Scaffold writes the runner configuration, the world module, the compiler
// configuration and the reports placeholder into dir, overwriting whatever is
// there with the same canonical content every time.
func Scaffold(dir string, opts Options) (Bundle, error) {
	files, err := Render(opts)
	if err != nil {
		return Bundle{}, err
	}

	telemetry.LogDebug("Setting up test environment", "dir", dir)

	bundle := Bundle{Directory: dir, Files: orderedmap.New[string, string]()}
	i := 0
	for p := files.Oldest(); p != nil; p = p.Next() {
		path := filepath.Join(dir, filepath.FromSlash(p.Key))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			telemetry.LogError("Failed to create scaffold directory", err, "path", filepath.Dir(path))
			return Bundle{}, &artifact.FileSystemError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
		}
		if err := os.WriteFile(path, p.Value, 0644); err != nil {
			telemetry.LogError("Failed to write scaffold file", err, "path", path)
			return Bundle{}, &artifact.FileSystemError{Op: "write", Path: path, Err: err}
		}
		bundle.Files.Set(templates[i][0], p.Key)
		i++
	}

	telemetry.LogInfo("Test environment ready", "dir", dir, "files", bundle.Files.Len())
	return bundle, nil
}

// Scaffolder is the function form of Scaffold, for injection.
type Scaffolder func(dir string, opts Options) (Bundle, error)
