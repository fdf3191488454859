package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"testassist/internal/artifact"
	"testassist/internal/scaffold"
	"testassist/internal/telemetry"
)

// Mockable dependency
var execCommand = exec.Command

// DefaultCommand launches cucumber-js.
const DefaultCommand = "npx"

// Options control one execution.
type Options struct {
	Browser       string
	Headless      bool
	StepTimeoutMs int
	// Command is the launcher for cucumber-js; defaults to npx.
	Command     string
	ProjectName string
	// Stdout and Stderr receive each output chunk as it arrives. Nil means
	// os.Stdout and os.Stderr. Writes to the two are serialized, so one
	// writer that is not safe for concurrent use may serve both.
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome of one execution. Success is driven by the exit code
// alone; the counts come from the result file.
type Result struct {
	Success     bool
	ExitCode    int
	Duration    time.Duration
	DurationMs  uint64
	TestsPassed uint
	TestsFailed uint
	RawOutput   string
	TestType    artifact.TestType
	Directory   string
}

// ReportParams is what a Collector receives after a run.
type ReportParams struct {
	Directory   string
	ProjectName string
	Browser     string
	TestType    artifact.TestType
	Result      Result
}

// Collector turns the raw result files of a finished run into reports.
type Collector interface {
	Collect(ctx context.Context, p ReportParams) error
}

// Orchestrator prepares a directory and supervises cucumber-js against it.
type Orchestrator struct {
	Scaffold scaffold.Scaffolder
	// Collector is optional.
	Collector Collector
}

// NewOrchestrator returns an Orchestrator using the real scaffolder.
func NewOrchestrator(c Collector) *Orchestrator {
	return &Orchestrator{Scaffold: scaffold.Scaffold, Collector: c}
}

// Args returns the cucumber-js arguments for an execution directory. Paths
// are relative to the directory, which is the child's working directory.
func Args() []string {
	return []string{
		"cucumber-js",
		artifact.FeatureFile,
		"--import", "tsx/esm",
		"--require", artifact.StepsFile,
		"--format", "progress",
		"--format", "json:" + scaffold.ReportJSON,
		"--format", "html:" + scaffold.ReportHTML,
	}
}

// Execute starts a run and waits for it.
func (o *Orchestrator) Execute(ctx context.Context, dir string, opts Options) (Result, error) {
	run, err := o.Start(ctx, dir, opts)
	if err != nil {
		return Result{}, err
	}
	return run.Wait(), nil
}

// Start checks dir, scaffolds it and spawns the runner. Precondition and
// scaffold failures are returned before any process exists. Spawn failures
// produce a finished Run whose result reports them.
func (o *Orchestrator) Start(ctx context.Context, dir string, opts Options) (*Run, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		e := &DirectoryNotFoundError{Dir: dir}
		telemetry.LogError("Test directory not found", e, "dir", dir)
		return nil, e
	}

	var missing []string
	for _, name := range []string{artifact.FeatureFile, artifact.StepsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		e := &MissingArtifactError{Dir: dir, Missing: missing}
		telemetry.LogError("Missing required files", e, "dir", dir, "missing", missing)
		return nil, e
	}

	testType := artifact.API
	if _, err := os.Stat(filepath.Join(dir, artifact.PagesFile)); err == nil {
		testType = artifact.UI
	}

	if opts.Browser == "" {
		opts.Browser = scaffold.DefaultBrowser
	}
	if opts.Command == "" {
		opts.Command = DefaultCommand
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	r := &Run{
		dir:       dir,
		opts:      opts,
		testType:  testType,
		collector: o.Collector,
		start:     time.Now(),
		done:      make(chan struct{}),
		cancelCh:  make(chan struct{}),
	}

	telemetry.LogInfo("Starting Playwright + Cucumber test execution",
		"test_type", testType.Display(),
		"page_objects", testType == artifact.UI,
		"dir", dir,
		"browser", opts.Browser,
		"headless", opts.Headless)

	r.setState(Scaffolding)
	scaffolder := o.Scaffold
	if scaffolder == nil {
		scaffolder = scaffold.Scaffold
	}
	if _, err := scaffolder(dir, scaffold.Options{Browser: opts.Browser, Headless: opts.Headless, StepTimeoutMs: opts.StepTimeoutMs}); err != nil {
		return nil, err
	}
	if support, _ := doublestar.Glob(os.DirFS(dir), "support/**/*.ts"); len(support) == 0 {
		telemetry.LogWarn("No support modules found after scaffolding", "dir", dir)
	}

	// a result file left by an earlier run must not be read as this run's
	stale := filepath.Join(dir, filepath.FromSlash(scaffold.ReportJSON))
	if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
		telemetry.LogWarn("Could not remove previous result file", "path", stale, "error", err)
	}

	args := Args()
	cmd := execCommand(opts.Command, args...)
	cmd.Dir = dir
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env,
		"BROWSER="+opts.Browser,
		"HEADLESS="+strconv.FormatBool(opts.Headless),
		"NODE_OPTIONS=--import tsx/esm",
	)
	setProcessGroup(cmd)
	r.cmd = cmd

	telemetry.LogInfo("Running command", "command", opts.Command, "args", args)

	stdout, stderr, err := pipes(cmd)
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		r.spawnFailed(ctx, &SpawnError{Command: opts.Command, Err: err})
		return r, nil
	}

	r.setState(Spawned)
	go r.supervise(ctx, stdout, stderr)
	return r, nil
}

func pipes(cmd *exec.Cmd) (io.ReadCloser, io.ReadCloser, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, err
	}
	return stdout, stderr, nil
}

// Run is one supervised runner process.
type Run struct {
	dir       string
	opts      Options
	testType  artifact.TestType
	collector Collector
	start     time.Time
	cmd       *exec.Cmd

	state      atomic.Int32
	done       chan struct{}
	cancelCh   chan struct{}
	cancelOnce sync.Once
	result     Result
}

// Done is closed once the result is available.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run is finished and returns its result.
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Cancel kills the runner's process group. The run still completes normally
// and reports the abnormal exit.
func (r *Run) Cancel() {
	r.cancelOnce.Do(func() { close(r.cancelCh) })
}

// State reports the run's current lifecycle state.
func (r *Run) State() State {
	return State(r.state.Load())
}

func (r *Run) setState(s State) {
	r.state.Store(int32(s))
	telemetry.LogDebug("Run state", "dir", r.dir, "state", s.String())
}

func (r *Run) spawnFailed(ctx context.Context, err *SpawnError) {
	telemetry.LogError("Failed to start test process", err, "dir", r.dir)
	elapsed := time.Since(r.start)
	r.result = Result{
		Success:     false,
		ExitCode:    -1,
		Duration:    elapsed,
		DurationMs:  uint64(elapsed.Milliseconds()),
		TestsFailed: 1,
		RawOutput:   "Process error: " + err.Error(),
		TestType:    r.testType,
		Directory:   r.dir,
	}
	telemetry.TrackRun(string(r.testType), false, elapsed.Seconds())
	r.setState(Done)
	close(r.done)
}

// lockedWriter serializes writes through a lock shared with its siblings.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// stream copies one pipe into its buffer, echoing each chunk.
func stream(wg *sync.WaitGroup, src io.Reader, buf *bytes.Buffer, echo io.Writer) {
	defer wg.Done()
	_, _ = io.Copy(io.MultiWriter(buf, echo), src)
}

func (r *Run) supervise(ctx context.Context, stdout, stderr io.Reader) {
	r.setState(Streaming)

	var outBuf, errBuf bytes.Buffer
	var echoMu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)
	go stream(&wg, stdout, &outBuf, &lockedWriter{mu: &echoMu, w: r.opts.Stdout})
	go stream(&wg, stderr, &errBuf, &lockedWriter{mu: &echoMu, w: r.opts.Stderr})

	exited := make(chan error, 1)
	go func() {
		// pipes must be drained before Wait closes them
		wg.Wait()
		exited <- r.cmd.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-exited:
	case <-r.cancelCh:
		telemetry.LogWarn("Cancelling test run", "dir", r.dir)
		killProcessGroup(r.cmd)
		waitErr = <-exited
	case <-ctx.Done():
		telemetry.LogWarn("Context done, killing test run", "dir", r.dir, "error", ctx.Err())
		killProcessGroup(r.cmd)
		waitErr = <-exited
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	elapsed := time.Since(r.start)
	r.setState(Exited)

	raw := outBuf.String()
	if errBuf.Len() > 0 {
		raw += "\n--- ERRORS ---\n" + errBuf.String()
	}

	res := Result{
		Success:    exitCode == 0,
		ExitCode:   exitCode,
		Duration:   elapsed,
		DurationMs: uint64(elapsed.Milliseconds()),
		RawOutput:  raw,
		TestType:   r.testType,
		Directory:  r.dir,
	}

	resultsPath := filepath.Join(r.dir, filepath.FromSlash(scaffold.ReportJSON))
	if counts, err := ParseReport(resultsPath); err != nil {
		telemetry.LogWarn("Could not parse test results", "path", resultsPath, "error", err)
	} else {
		res.TestsPassed = counts.Passed
		res.TestsFailed = counts.Failed
		telemetry.TrackScenarios(counts.Passed, counts.Failed)
	}
	r.setState(ResultParsed)

	telemetry.LogInfo("Test execution finished",
		"success", res.Success,
		"exit_code", exitCode,
		"duration_ms", res.DurationMs,
		"passed", res.TestsPassed,
		"failed", res.TestsFailed)
	telemetry.TrackRun(string(r.testType), res.Success, elapsed.Seconds())

	if r.collector != nil {
		err := r.collector.Collect(ctx, ReportParams{
			Directory:   r.dir,
			ProjectName: r.opts.ProjectName,
			Browser:     r.opts.Browser,
			TestType:    r.testType,
			Result:      res,
		})
		if err != nil {
			telemetry.LogWarn("Report generation failed", "dir", r.dir, "error", err)
		}
	}
	r.setState(ReportAttempted)

	r.result = res
	r.setState(Done)
	close(r.done)
}

// String describes a result in one line.
func (r Result) String() string {
	status := "PASSED"
	if !r.Success {
		status = "FAILED"
	}
	return fmt.Sprintf("%s %s: %d passed, %d failed in %dms (exit %d)",
		r.TestType.Display(), status, r.TestsPassed, r.TestsFailed, r.DurationMs, r.ExitCode)
}
